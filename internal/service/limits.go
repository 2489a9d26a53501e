package service

// PageLimits bounds the page size a caller may request.
type PageLimits struct {
	Min     int
	Max     int
	Default int
}

var (
	FeedLimits    = PageLimits{Min: 1, Max: 30, Default: 12}
	CommentLimits = PageLimits{Min: 1, Max: 50, Default: 20}
)

// Clamp returns requested forced into [Min, Max]. Zero means "not given".
func (l PageLimits) Clamp(requested int) int {
	switch {
	case requested == 0:
		return l.Default
	case requested < l.Min:
		return l.Min
	case requested > l.Max:
		return l.Max
	default:
		return requested
	}
}
