package web

import (
	"time"

	vm "github.com/aidaco/wwwmin/internal/adapter/driving/web/viewmodel"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

const displayTime = "Jan 2, 2006 3:04 PM MST"

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayTime)
}

func toSubmissionViewModel(s model.ContactSubmission) vm.Submission {
	view := vm.Submission{
		ID:          s.ID,
		Email:       s.Email,
		Phone:       s.Phone,
		MessageHTML: RenderMarkdown(s.Message),
		ReceivedAt:  formatDisplayTime(s.ReceivedAt),
	}
	if s.ArchivedAt != nil {
		view.ArchivedAt = formatDisplayTime(*s.ArchivedAt)
	}
	return view
}

func toSubmissionViewModels(subs []model.ContactSubmission) []vm.Submission {
	out := make([]vm.Submission, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubmissionViewModel(s))
	}
	return out
}

func toLinkViewModel(l model.ContactLink) vm.Link {
	return vm.Link{
		ID:         l.ID,
		Name:       l.Name,
		Href:       l.Href,
		CategoryID: l.CategoryID,
		Category:   l.CategoryName,
		Static:     l.ID == 0,
	}
}

func toLinkGroupViewModels(groups []model.LinkGroup) []vm.LinkGroup {
	out := make([]vm.LinkGroup, 0, len(groups))
	for _, g := range groups {
		links := make([]vm.Link, 0, len(g.Links))
		for _, l := range g.Links {
			links = append(links, toLinkViewModel(l))
		}
		out = append(out, vm.LinkGroup{Category: g.Category, Links: links})
	}
	return out
}

func toCategoryViewModels(cats []model.LinkCategory) []vm.Category {
	out := make([]vm.Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, vm.Category{ID: c.ID, Name: c.Name})
	}
	return out
}

func toDayHoursViewModels(parts []application.DayPart) []vm.DayHours {
	out := make([]vm.DayHours, 0, len(parts))
	for _, p := range parts {
		out = append(out, vm.DayHours{Day: p.Day, Hours: p.Hours})
	}
	return out
}

func toUpgradeViewModel(enabled bool, branch string, st model.UpgradeStatus) vm.Upgrade {
	return vm.Upgrade{
		Enabled:    enabled,
		Branch:     branch,
		State:      string(st.State),
		Action:     string(st.Action),
		Trigger:    st.Trigger,
		StartedAt:  formatDisplayTime(st.StartedAt),
		FinishedAt: formatDisplayTime(st.FinishedAt),
		LastError:  st.LastError,
	}
}
