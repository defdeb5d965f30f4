package model

import "strings"

// Status is an item's canonical pipeline status. The enumeration is closed
// and ordered: AllStatuses returns pipeline order, which listings and
// visibility sets rely on.
type Status string

const (
	StatusAvailable        Status = "available"
	StatusInProgress       Status = "in_progress"
	StatusOptimizeReview   Status = "optimize_review"
	StatusTitleCorrections Status = "title_corrections"
	StatusUploadReview     Status = "upload_review"
	StatusMediaReview      Status = "media_review"
	StatusFinalReview      Status = "final_review"
	StatusYoutubeReady     Status = "youtube_ready"
	StatusCompleted        Status = "completed"
	StatusTrashed          Status = "trashed"
)

var allStatuses = []Status{
	StatusAvailable,
	StatusInProgress,
	StatusOptimizeReview,
	StatusTitleCorrections,
	StatusUploadReview,
	StatusMediaReview,
	StatusFinalReview,
	StatusYoutubeReady,
	StatusCompleted,
	StatusTrashed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, s := range allStatuses {
		set[s] = struct{}{}
	}
	return set
}()

// AllStatuses returns every canonical status in pipeline order. Callers must
// not mutate the result.
func AllStatuses() []Status {
	return allStatuses
}

// ParseStatus normalizes and validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusSet[status]
	return status, ok
}

// Stage names a claimable slot on an item. Each stage has at most one holder
// at a time; stages are what the claim operation competes over.
type Stage string

const (
	StageOptimize      Stage = "optimize"
	StageContentReview Stage = "content_review"
	StageUpload        Stage = "upload"
	StageMediaReview   Stage = "media_review"
)

// ClaimStage maps a status to the stage whose slot a claim at that status
// competes for. ok is false for statuses that admit no claim.
func (s Status) ClaimStage() (Stage, bool) {
	switch s {
	case StatusAvailable, StatusInProgress, StatusTitleCorrections:
		return StageOptimize, true
	case StatusOptimizeReview:
		return StageContentReview, true
	case StatusUploadReview:
		return StageUpload, true
	case StatusMediaReview:
		return StageMediaReview, true
	default:
		return "", false
	}
}
