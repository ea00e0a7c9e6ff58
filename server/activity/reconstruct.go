package activity

import (
	"sort"
	"time"
)

const (
	// GapThreshold is the longest inter-sample delta still taken at face value.
	GapThreshold = 300 * time.Second
	// NominalInterval replaces deltas beyond GapThreshold and is the per-sample
	// weight of the count-based estimates.
	NominalInterval = 5 * time.Second
	// MaxDisplayedWindows bounds the window titles kept per app.
	MaxDisplayedWindows = 10
)

// Sample is the slice of a stored snapshot the reconstruction reads.
type Sample struct {
	Timestamp  time.Time
	Process    string
	Window     string
	Idle       bool
	Locked     bool
	Screenshot bool
}

func (s Sample) active() bool { return !s.Idle && !s.Locked }

// AppUsage is the reconstructed time attributed to one application.
type AppUsage struct {
	Name          string    `json:"appName"`
	TotalSeconds  float64   `json:"totalTime"`
	TotalHours    float64   `json:"totalHours"`
	ActiveSeconds float64   `json:"activeTime"`
	ActiveHours   float64   `json:"activeHours"`
	IdleSeconds   float64   `json:"idleTime"`
	IdleHours     float64   `json:"idleHours"`
	Percentage    float64   `json:"percentage"`
	Windows       []string  `json:"windows"`
	WindowCount   int       `json:"windowCount"`
	Occurrences   int       `json:"usageCount"`
	FirstSeen     time.Time `json:"firstSeen"`
	LastSeen      time.Time `json:"lastSeen"`

	windowSet map[string]struct{}
	order     int
}

// Breakdown is the full reconstruction over one sample window.
type Breakdown struct {
	Apps          []AppUsage
	TotalSeconds  float64
	ActiveSeconds float64
	IdleSeconds   float64
	Samples       int
}

// SegmentDuration returns the time attributed to the segment between two
// consecutive samples. Gaps longer than GapThreshold count as NominalInterval.
func SegmentDuration(current, next time.Time) time.Duration {
	delta := next.Sub(current)
	if delta < 0 {
		return 0
	}
	if delta > GapThreshold {
		return NominalInterval
	}
	return delta
}

// Reconstruct rebuilds per-app durations from samples. Input order does not
// matter; samples are sorted by timestamp first, keeping input order for equal
// timestamps. Every sample but the last opens a segment attributed to its own
// process; the last sample only closes the final segment, so an app seen only
// there is not listed and usage counts are segment counts. Apps are returned
// by total time descending; equal totals keep the order in which the app was
// first seen.
func Reconstruct(samples []Sample) Breakdown {
	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	byName := make(map[string]*AppUsage)
	var apps []*AppUsage
	out := Breakdown{Samples: len(ordered)}

	for i := 0; i+1 < len(ordered); i++ {
		cur := ordered[i]
		name := cur.Process
		if name == "" {
			name = UnknownName
		}
		app, ok := byName[name]
		if !ok {
			app = &AppUsage{
				Name:      name,
				FirstSeen: cur.Timestamp,
				windowSet: make(map[string]struct{}),
				order:     len(apps),
			}
			byName[name] = app
			apps = append(apps, app)
		}
		app.Occurrences++
		app.LastSeen = cur.Timestamp
		if cur.Window != "" {
			if _, seen := app.windowSet[cur.Window]; !seen {
				app.windowSet[cur.Window] = struct{}{}
				if len(app.Windows) < MaxDisplayedWindows {
					app.Windows = append(app.Windows, cur.Window)
				}
			}
		}

		seconds := SegmentDuration(cur.Timestamp, ordered[i+1].Timestamp).Seconds()
		app.TotalSeconds += seconds
		out.TotalSeconds += seconds
		if cur.active() {
			app.ActiveSeconds += seconds
			out.ActiveSeconds += seconds
		} else {
			app.IdleSeconds += seconds
			out.IdleSeconds += seconds
		}
	}

	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].TotalSeconds != apps[j].TotalSeconds {
			return apps[i].TotalSeconds > apps[j].TotalSeconds
		}
		return apps[i].order < apps[j].order
	})

	out.Apps = make([]AppUsage, 0, len(apps))
	for _, app := range apps {
		app.WindowCount = len(app.windowSet)
		app.TotalHours = Hours(app.TotalSeconds)
		app.ActiveHours = Hours(app.ActiveSeconds)
		app.IdleHours = Hours(app.IdleSeconds)
		app.Percentage = share(app.TotalSeconds, out.TotalSeconds)
		app.windowSet = nil
		if app.Windows == nil {
			app.Windows = []string{}
		}
		out.Apps = append(out.Apps, *app)
	}
	return out
}

// share is a two-decimal percentage without clamping. Used only for app
// shares of a reconstructed total.
func share(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return roundTo(part/whole*100, 2)
}
