// Package view computes what a specific viewer sees of an item. All
// role-specific presentation logic lives here; the rules and engine packages
// stay role-generic. Resolution is pure: it never mutates the item and never
// touches storage.
package view

import (
	"github.com/mediaops/callsheet/model"
)

// claimable maps each non-administrator role to the statuses at which that
// role competes for the stage slot. At these statuses the presented status is
// a pseudo-status (available / assigned / unavailable) instead of the
// canonical one.
var claimable = map[model.Role]map[model.Status]struct{}{
	model.RoleOptimizer: {
		model.StatusAvailable:        {},
		model.StatusInProgress:       {},
		model.StatusTitleCorrections: {},
	},
	model.RoleContentReviewer: {
		model.StatusOptimizeReview: {},
	},
	model.RoleUploader: {
		model.StatusUploadReview: {},
		model.StatusMediaReview:  {},
	},
	model.RoleReviewer: {
		model.StatusUploadReview: {},
		model.StatusMediaReview:  {},
	},
	model.RoleMediaReviewer: {
		model.StatusUploadReview: {},
		model.StatusMediaReview:  {},
	},
}

// Resolve computes the effective view of an item for one viewer.
//
// Precedence, highest first: an operator custom-status overlay replaces the
// presented status for every role; then role-specific remapping at claimable
// statuses (assigned-to-me, then assigned-to-other, then generic available);
// then the canonical status verbatim. A secondary-status overlay surfaces as
// Marker without affecting status resolution.
func Resolve(role model.Role, item model.Item, viewerID string) model.EffectiveView {
	var ev model.EffectiveView

	if role.IsAdmin() {
		ev = resolveAdmin(item)
	} else {
		ev = resolveScoped(role, item, viewerID)
	}

	switch item.Overlay.Kind {
	case model.OverlayCustomStatus:
		ev.Status = item.Overlay.Value
	case model.OverlaySecondaryStatus:
		ev.Marker = item.Overlay.Value
	}
	return ev
}

func resolveAdmin(item model.Item) model.EffectiveView {
	ev := model.EffectiveView{Status: string(item.Status)}
	if stage, ok := item.Status.ClaimStage(); ok {
		ev.Assignee = item.Assignees.ForStage(stage)
	}
	return ev
}

func resolveScoped(role model.Role, item model.Item, viewerID string) model.EffectiveView {
	if _, ok := claimable[role][item.Status]; !ok {
		// Not a status this role competes at: canonical status, assignee
		// only when it is the viewer's own.
		ev := model.EffectiveView{Status: string(item.Status)}
		if stage, ok := item.Status.ClaimStage(); ok {
			if holder := item.Assignees.ForStage(stage); holder != "" && holder == viewerID {
				ev.Assignee = viewerID
			}
		}
		return ev
	}

	stage, ok := item.Status.ClaimStage()
	if !ok {
		return model.EffectiveView{Status: string(item.Status)}
	}
	holder := item.Assignees.ForStage(stage)

	switch {
	case holder != "" && holder == viewerID:
		return model.EffectiveView{Status: model.PresentedAssigned, Assignee: viewerID}
	case holder != "":
		// Someone else holds the slot. The viewer must not learn whose it
		// is, and display fields are elided along with the status badge.
		return model.EffectiveView{Status: model.PresentedUnavailable, Restricted: true}
	default:
		return model.EffectiveView{Status: model.PresentedAvailable}
	}
}
