package inference

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/instructsheet/internal/sheet"
)

var (
	leadingNumber = regexp.MustCompile(`^\d+[.:)]\s*`)
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ParseInstructions splits free text into one instruction per non-blank
// line, dropping any leading "1." / "1:" / "1)" numbering.
func ParseInstructions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(leadingNumber.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

const promptTemplate = `You are an image annotation assistant. Analyze this image and the following correction instructions.
For each instruction, identify the location in the image where the correction should be made.

Instructions:
%s

Return a JSON array of annotations. Each annotation should have:
- number: the instruction number (1, 2, 3, etc.)
- label: a short summary of the correction (max 20 characters, in the same language as the instructions)
- targetX: the X coordinate (0-100 as percentage of image width) where the arrow should point
- targetY: the Y coordinate (0-100 as percentage of image height) where the arrow should point
- arrowStartX: the X coordinate (0-100) where the arrow label/number should be placed (should be outside the main content area, typically in margins)
- arrowStartY: the Y coordinate (0-100) where the arrow label/number should be placed

Important:
- Place arrow starting points in the margins or empty areas of the image
- Make sure arrows don't overlap each other
- Target coordinates should point to the exact location that needs correction
- Respond ONLY with a valid JSON array, no other text

Example response:
[
  {"number": 1, "label": "Organic -> beans", "targetX": 45, "targetY": 25, "arrowStartX": 10, "arrowStartY": 25},
  {"number": 2, "label": "Add product name", "targetX": 50, "targetY": 5, "arrowStartX": 10, "arrowStartY": 5}
]`

// BuildPrompt numbers the instructions and wraps them in the request text.
func BuildPrompt(instructions []string) string {
	lines := make([]string, len(instructions))
	for i, inst := range instructions {
		lines[i] = fmt.Sprintf("%d. %s", i+1, inst)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}

// ExtractJSON returns the content of the first fenced code block in text,
// or text itself when there is none.
func ExtractJSON(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// DecodeAnnotations parses model output into a clamped annotation list.
func DecodeAnnotations(text string) ([]sheet.Annotation, error) {
	list, err := sheet.Parse([]byte(ExtractJSON(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return list, nil
}
