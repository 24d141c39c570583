package api

import "strings"

// sanitizeFilename maps a volume name to something safe in a
// Content-Disposition header and on every filesystem we care about.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "volume"
	}
	replacer := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"\\", "-",
		"\"", "",
		";", "",
	)
	return replacer.Replace(name)
}

// generateJSONFilename builds the download name for a session export,
// sofa_{name}_session.json.
func generateJSONFilename(name string) string {
	return "sofa_" + sanitizeFilename(name) + "_session.json"
}

// generateTextFilename builds the download name for a text export,
// sofa_{name}_data.txt.
func generateTextFilename(name string) string {
	return "sofa_" + sanitizeFilename(name) + "_data.txt"
}
