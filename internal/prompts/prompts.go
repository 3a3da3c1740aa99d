// Package prompts builds the instructions sent to the image model.
package prompts

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

// DefaultBrief is the style brief offered for a fresh upload
const DefaultBrief = "Make this room modern and minimalist."

// ObjectScan asks for the editable furnishings in a room photo
func ObjectScan() string {
	return `Analyze the provided image of a room and identify the main, distinct, editable interior design items.
List them as a JSON array of strings. Examples: "sofa", "window curtains", "coffee table", "rug".
Include only items that are clearly visible and could realistically be edited.
Do not include structural elements such as walls, floor or ceiling.
Return ONLY the JSON array, without any other text or markdown formatting.
The array must contain between 3 and 8 items.`
}

// StructureScan asks for the floor, ceiling and distinct walls
func StructureScan() string {
	return `Analyze the provided image of a room and identify the main structural surfaces.
Specifically list the floor, the ceiling and any distinct walls (for example "left wall", "back wall", "wall with window").
List them as a JSON array of strings. Include only "floor", "ceiling" and wall descriptions.
Return ONLY the JSON array, without any other text or markdown formatting.
The array must contain between 2 and 5 items.`
}

// Scan returns the detection prompt for kind
func Scan(kind providers.ScanKind) string {
	if kind == providers.ScanStructure {
		return StructureScan()
	}
	return ObjectScan()
}

// Generation builds the instruction text for a request. The room image is
// always the first image part; a targeted edit's reference image is the second.
func Generation(req providers.GenerationRequest) string {
	switch req.Intent {
	case providers.IntentTargetedEdit:
		return targetedEdit(req.Target)
	case providers.IntentWholeImageEdit:
		return fmt.Sprintf(`You are an expert photo editor and interior designer. A user has provided an image of a room and a request to modify it. Preserve the overall image, style, and layout. Apply the SPECIFIC change requested by the user. The final image should be a photorealistic rendering. User's request: %q`, req.Prompt)
	default:
		return fmt.Sprintf(`You are an expert interior designer. A user has provided an image of their room and a request. Your task is to preserve the overall style of the interior shown in the image. Keep the exact same architectural layout, windows, doors, and perspective of the room. Subtly enhance and improve the interior furnishings, color palette, lighting, and decor based on the user's request, while maintaining the original's core aesthetic. The final image should be a photorealistic rendering of the redesigned space. User's request: %q`, req.Prompt)
	}
}

func targetedEdit(t *providers.TargetedEdit) string {
	if t == nil {
		return ""
	}

	var changes strings.Builder
	if t.Transform != "" {
		fmt.Fprintf(&changes, "Apply this transformation to it: %q.\n", t.Transform)
	}
	if t.StyleText != "" {
		fmt.Fprintf(&changes, "Then, apply this style change to it: %q.\n", t.StyleText)
	}

	if t.Reference != nil {
		return fmt.Sprintf(`You are an expert photo editor. The first image is the user's room. The second image is a style reference. The user wants to modify a specific object in the first image: the %[1]q. Use the second image as a style and material reference. Change the %[1]q to match the style of the object in the second image.
%[2]sApply the changes ONLY to the %[1]q. Preserve the rest of the first image, including the overall style, layout, lighting, and other objects, as closely as possible. The final image should be a photorealistic rendering.`, t.Label, changes.String())
	}

	return fmt.Sprintf(`You are an expert photo editor. The user wants to modify a specific object: the %[1]q. Apply the user's requested changes ONLY to the %[1]q.
%[2]sPreserve the rest of the image, including the overall style, layout, lighting, and other objects, as closely as possible. The final image should be a photorealistic rendering.`, t.Label, changes.String())
}
