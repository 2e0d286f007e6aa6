package core

// ProjectColors is the palette project colours are picked from.
var ProjectColors = []string{"#3b82f6", "#22c55e", "#f59e0b", "#ef4444", "#8b5cf6", "#06b6d4", "#eab308"}

// ColorForID maps a project ID to a palette colour with a stable 31-based
// string hash, so a project keeps its colour across runs.
func ColorForID(id string) string {
	var h int32
	for _, c := range id {
		h = h*31 + int32(c)
	}
	idx := int(h) % len(ProjectColors)
	if idx < 0 {
		idx = -idx
	}
	return ProjectColors[idx]
}
