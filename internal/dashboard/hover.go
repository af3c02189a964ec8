// v0
// internal/dashboard/hover.go
package dashboard

import (
	"fmt"
	"log/slog"

	"nrgchamp/dashboard/internal/tooltip"
)

// Hover targets the tooltip at the point labelled label in series seriesID
// and moves it toward pointer.
func (s *Store) Hover(seriesID, label string, pointer tooltip.Point) (TooltipView, error) {
	pts, ok := s.series.Get(seriesID)
	if !ok {
		return TooltipView{}, fmt.Errorf("%s/%s: %w", seriesID, label, ErrUnknownPoint)
	}
	idx := -1
	for i, p := range pts {
		if p.Label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return TooltipView{}, fmt.Errorf("%s/%s: %w", seriesID, label, ErrUnknownPoint)
	}

	s.mu.Lock()
	prev := s.hover
	s.hover = &hoverTarget{seriesID: seriesID, point: pts[idx]}
	s.animator.Show(pointer)
	tv := s.tooltipLocked()
	s.mu.Unlock()

	if prev == nil || prev.seriesID != seriesID || prev.point.Label != label {
		s.log.Debug("tooltip_target", slog.String("series", seriesID), slog.String("label", label))
		s.count("hover")
	}
	return tv, nil
}

// Leave hides the tooltip and cancels its animation.
func (s *Store) Leave() TooltipView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover = nil
	s.animator.Hide()
	return s.tooltipLocked()
}

// ClearTooltip resets the tooltip to hidden.
func (s *Store) ClearTooltip() TooltipView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover = nil
	s.animator.Clear()
	return s.tooltipLocked()
}

// SetViewport changes the viewport used to place the tooltip.
func (s *Store) SetViewport(v tooltip.Size) {
	s.animator.SetViewport(v)
}

// Tooltip returns the current tooltip state.
func (s *Store) Tooltip() TooltipView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tooltipLocked()
}

func (s *Store) tooltipLocked() TooltipView {
	tv := TooltipView{State: s.animator.Snapshot()}
	if s.hover != nil {
		d := tooltip.Describe(s.hover.point)
		tv.SeriesID = s.hover.seriesID
		tv.Details = &d
	}
	return tv
}
