package rules

// defaultFile is the built-in production pipeline. It goes through the same
// compile path as file-loaded rulesets so the validation rules stay uniform.
var defaultFile = File{
	InitialStatus:    "available",
	TerminalStatuses: []string{"completed", "trashed"},
	Transitions: map[string]map[string][]string{
		"optimizer": {
			"available":         {"in_progress"},
			"in_progress":       {"optimize_review"},
			"title_corrections": {"in_progress", "optimize_review"},
		},
		"reviewer": {
			"optimize_review": {"title_corrections", "upload_review"},
			"final_review":    {"title_corrections", "youtube_ready"},
		},
		"content_reviewer": {
			"optimize_review": {"title_corrections", "upload_review"},
		},
		"uploader": {
			"upload_review": {"upload_review", "media_review"},
		},
		"media_reviewer": {
			"media_review": {"upload_review", "final_review"},
		},
	},
	Visibility: map[string][]string{
		"optimizer":        {"available", "in_progress", "title_corrections", "optimize_review"},
		"reviewer":         {"optimize_review", "title_corrections", "upload_review", "media_review", "final_review", "youtube_ready"},
		"content_reviewer": {"optimize_review", "title_corrections"},
		"media_reviewer":   {"upload_review", "media_review"},
		"uploader":         {"upload_review", "media_review", "youtube_ready"},
	},
}

var defaultRuleset = MustCompile(defaultFile)

// Default returns the built-in pipeline ruleset. The returned value is shared
// and immutable.
func Default() *Ruleset {
	return defaultRuleset
}
