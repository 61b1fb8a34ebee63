package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Generic families that are always available.
const (
	FamilySans  = "sans-serif"
	FamilySerif = "serif"
	FamilyMono  = "monospace"
)

var familyAliases = map[string]string{
	"sans-serif": FamilySans,
	"sans":       FamilySans,
	"system-ui":  FamilySans,
	"arial":      FamilySans,
	"helvetica":  FamilySans,
	"go":         FamilySans,
	"serif":      FamilySerif,
	"times":      FamilySerif,
	"georgia":    FamilySerif,
	"monospace":  FamilyMono,
	"mono":       FamilyMono,
	"courier":    FamilyMono,
}

var builtinFonts = map[string][2][]byte{
	FamilySans:  {goregular.TTF, gobold.TTF},
	FamilySerif: {lmroman10regular.TTF, lmroman10bold.TTF},
	FamilyMono:  {gomono.TTF, gomonobold.TTF},
}

// ResolveFamily picks the first usable entry of a CSS style family list
// such as "'Yu Gothic', sans-serif". Entries naming a font file that exists
// are returned as paths. Unknown names are skipped; when nothing matches the
// result is FamilySans.
func ResolveFamily(list string) string {
	for _, part := range strings.Split(list, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name == "" {
			continue
		}
		if fam, ok := familyAliases[strings.ToLower(name)]; ok {
			return fam
		}
		if isFontFile(name) {
			if _, err := os.Stat(name); err == nil {
				return name
			}
		}
	}
	return FamilySans
}

// GenericFamily is ResolveFamily restricted to the built-in families, for
// family lists that come from untrusted callers. Font file entries are
// skipped.
func GenericFamily(list string) string {
	for _, part := range strings.Split(list, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if fam, ok := familyAliases[strings.ToLower(name)]; ok {
			return fam
		}
	}
	return FamilySans
}

// faceStep is the size granularity of cached faces.
const faceStep = 0.5

func faceSize(size float64) float64 {
	return math.Round(size/faceStep) * faceStep
}

func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

type faceKey struct {
	family string
	size   float64
	bold   bool
}

// Fonts caches parsed fonts and sized faces. Faces are shared, so callers
// must not draw with the same Fonts from several goroutines at once.
type Fonts struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  sync.Map // map[faceKey]font.Face
}

// NewFonts returns an empty cache.
func NewFonts() *Fonts {
	return &Fonts{parsed: make(map[string]*opentype.Font)}
}

// Face returns the face for a family list at a pixel size. Sizes are
// rounded to half pixels so nearby sizes share one face.
func (f *Fonts) Face(family string, size float64, bold bool) (font.Face, error) {
	size = faceSize(size)
	if size <= 0 {
		return nil, fmt.Errorf("font size %g", size)
	}
	key := faceKey{family: ResolveFamily(family), size: size, bold: bold}
	if face, ok := f.faces.Load(key); ok {
		return face.(font.Face), nil
	}
	otf, err := f.font(key.family, bold)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face %s %.1f: %w", key.family, size, err)
	}
	actual, _ := f.faces.LoadOrStore(key, face)
	return actual.(font.Face), nil
}

func (f *Fonts) font(family string, bold bool) (*opentype.Font, error) {
	name := family
	if bold {
		name += "#bold"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if otf, ok := f.parsed[name]; ok {
		return otf, nil
	}

	var data []byte
	if b, ok := builtinFonts[family]; ok {
		data = b[0]
		if bold {
			data = b[1]
		}
	} else {
		// a font file has no separate bold variant
		raw, err := os.ReadFile(family)
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		data = raw
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", family, err)
	}
	f.parsed[name] = otf
	return otf, nil
}
