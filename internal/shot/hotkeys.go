package shot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Actions lists the hotkey actions Dispatch understands.
var Actions = []string{
	config.ActionCaptureFullScreen,
	config.ActionCaptureRegion,
	config.ActionCaptureWindow,
}

// Dispatch runs the capture bound to a hotkey action. capture_region asks
// the configured RegionSelector for a rectangle on the primary display and
// crops the same frame the selector was shown.
func (s *Service) Dispatch(action string) (Result, error) {
	logger.WithComponent("shot").Debug().Str("action", action).Msg("Dispatching action")

	switch action {
	case config.ActionCaptureFullScreen:
		return s.Capture(CaptureRequest{Mode: ModeFullScreen})
	case config.ActionCaptureWindow:
		return s.Capture(CaptureRequest{Mode: ModeWindow})
	case config.ActionCaptureRegion:
		if s.selector == nil {
			return Result{}, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "dispatch", "no region selector configured")
		}
		src, err := s.requireSource()
		if err != nil {
			return Result{}, err
		}
		display, err := s.display(src, "")
		if err != nil {
			return Result{}, err
		}
		frame, err := src.Capture(display.ID)
		if err != nil {
			return Result{}, sourceErr(err)
		}
		region, err := s.selector.SelectRegion(display, frame)
		if err != nil {
			return Result{}, shoterr.InStage(err, shoterr.StageSource, shoterr.KindInvalid, "select region")
		}
		return s.capture(CaptureRequest{Mode: ModeRegion, Region: &region, DisplayID: display.ID}, frame)
	}
	return Result{}, shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSettings, "dispatch", "unknown action %q", action)
}

// BindHotkeys registers every known action that has a combination in
// settings. Unknown actions are skipped. It returns the actions bound.
func (s *Service) BindHotkeys(registrar HotkeyRegistrar, settings config.Settings) ([]string, error) {
	log := logger.WithComponent("shot")

	actions := make([]string, 0, len(settings.Hotkeys))
	for action := range settings.Hotkeys {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	known := make(map[string]bool, len(Actions))
	for _, a := range Actions {
		known[a] = true
	}

	var bound []string
	var errs []error
	for _, action := range actions {
		action := action // per-iteration copy for the callback (go 1.21 loop semantics)
		combo := settings.Hotkeys[action]
		if !known[action] {
			log.Debug().Str("action", action).Msg("Ignoring hotkey for unknown action")
			continue
		}
		if combo == "" {
			continue
		}

		err := registrar.Register(combo, func() {
			res, err := s.Dispatch(action)
			if err != nil {
				log.Error().Err(err).Str("action", action).Msg("Hotkey capture failed")
				return
			}
			log.Debug().Str("action", action).Str("path", res.Path).Msg("Hotkey capture finished")
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", action, combo, err))
			continue
		}
		bound = append(bound, action)
		log.Info().Str("action", action).Str("combo", combo).Msg("Hotkey bound")
	}

	if len(errs) > 0 {
		return bound, shoterr.New(shoterr.KindInvalid, shoterr.StageSettings, "bind hotkeys", errors.Join(errs...))
	}
	return bound, nil
}
