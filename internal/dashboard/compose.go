package dashboard

import (
	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/auth"
)

const (
	ProductName    = "OralVis"
	ProductTagline = "Healthcare Scan Management"

	TabUpload = "upload"
	TabScans  = "scans"
)

type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Header is the top bar: product, signed-in email and role badge.
type Header struct {
	Product   string `json:"product"`
	Tagline   string `json:"tagline"`
	Email     string `json:"email,omitempty"`
	RoleBadge string `json:"role_badge,omitempty"`
}

// View is the composed dashboard for one caller.
type View struct {
	Header     Header `json:"header"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Tabs       []Tab  `json:"tabs"`
	DefaultTab string `json:"default_tab"`
}

// Compose builds the dashboard for id. The upload tab exists only for
// technicians and is then the default; everyone gets the scans tab.
func Compose(id auth.Identity) View {
	v := View{
		Header: Header{
			Product:   ProductName,
			Tagline:   ProductTagline,
			Email:     id.Email,
			RoleBadge: id.PrimaryRole(),
		},
		Title:      "Dashboard",
		Subtitle:   "Upload and track your oral health scans",
		DefaultTab: TabScans,
	}
	if id.HasRole(auth.RoleDentist) {
		v.Subtitle = "Review and manage oral health scans"
	}
	if id.HasRole(auth.RoleTechnician) {
		v.Tabs = append(v.Tabs, Tab{ID: TabUpload, Label: "Upload Scan"})
		v.DefaultTab = TabUpload
	}
	v.Tabs = append(v.Tabs, Tab{ID: TabScans, Label: scans.ListHeading(id)})
	return v
}

// HasTab reports whether the view includes the tab with the given id.
func (v View) HasTab(id string) bool {
	for _, t := range v.Tabs {
		if t.ID == id {
			return true
		}
	}
	return false
}
