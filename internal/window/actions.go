package window

import (
	"errors"

	"github.com/example/instructsheet/internal/canvas"
	"github.com/example/instructsheet/internal/clipboard"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/sheet"
)

const fontStep = 2

var families = []string{render.FamilySans, render.FamilySerif, render.FamilyMono}

// perform runs act and reports whether the window should close.
func (w *Window) perform(act action) bool {
	switch act {
	case actionQuit:
		return true
	case actionSave:
		w.save()
	case actionCopy:
		w.copyImage()
	case actionPaste:
		w.paste()
	case actionWriteSheet:
		w.writeSheet()
	case actionFontUp:
		w.ctrl.SetFontSize(w.ctrl.Style().FontSize + fontStep)
	case actionFontDown:
		w.ctrl.SetFontSize(w.ctrl.Style().FontSize - fontStep)
	case actionNextColor:
		w.ctrl.SetArrowColor(nextArrowColor(w.ctrl.Style().ArrowColor))
	case actionNextFamily:
		w.ctrl.SetFontFamily(nextFamily(w.ctrl.Style().FontFamily))
	case actionReset:
		w.ctrl.Reset()
		w.say("annotations cleared")
	}
	return false
}

func nextArrowColor(cur render.ArrowColor) render.ArrowColor {
	presets := render.ArrowPresets()
	for i, p := range presets {
		if p == cur {
			return presets[(i+1)%len(presets)]
		}
	}
	return presets[0]
}

func nextFamily(cur string) string {
	resolved := render.ResolveFamily(cur)
	for i, f := range families {
		if f == resolved {
			return families[(i+1)%len(families)]
		}
	}
	return families[0]
}

func (w *Window) exportPath() (string, error) {
	if w.output != "" {
		return w.output, nil
	}
	return imageio.ExportPath(w.saveDir, w.now())
}

func (w *Window) save() {
	img, err := w.ctrl.Render()
	if err != nil {
		w.say("save: %v", err)
		return
	}
	path, err := w.exportPath()
	if err != nil {
		w.say("save: %v", err)
		return
	}
	if err := imageio.WriteFile(path, img); err != nil {
		w.say("save: %v", err)
		return
	}
	w.notifier.Export(path)
	w.say("saved %s", path)
}

func (w *Window) copyImage() {
	img, err := w.ctrl.Render()
	if err != nil {
		w.say("copy: %v", err)
		return
	}
	if err := clipboard.CopyImage(img); err != nil {
		w.say("copy: %v", err)
		return
	}
	w.notifier.Copy("instruction sheet")
	w.say("sheet copied to clipboard")
}

func (w *Window) paste() {
	data, err := clipboard.PasteImage()
	if err != nil {
		w.say("paste: %v", err)
		return
	}
	w.ctrl.LoadImageAsync(data, "", func(err error) {
		switch {
		case err == nil:
			w.say("image pasted")
		case !errors.Is(err, canvas.ErrSuperseded):
			w.say("paste: %v", err)
		}
	})
}

func (w *Window) writeSheet() {
	if w.sheetPath == "" {
		w.say("no annotation file given")
		return
	}
	if err := sheet.WriteFile(w.sheetPath, w.ctrl.Annotations()); err != nil {
		w.say("write: %v", err)
		return
	}
	w.say("wrote %s", w.sheetPath)
}
