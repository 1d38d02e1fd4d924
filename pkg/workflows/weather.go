package workflows

import (
	"context"
	"errors"
	"strings"

	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/harun/yordamchi/pkg/weather"
)

func (s *Service) enterWeather(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	sess.State = session.StateWeather

	msg := Text(s.t(sess, "weather.prompt"))
	msg.Reply = [][]ReplyButton{
		{{Label: s.t(sess, "button.send_location"), RequestLocation: true}},
		{{Label: s.t(sess, "button.menu")}},
	}
	_, err := s.send(ctx, sess, msg)
	return err
}

// weather reports current conditions for a city name or a shared location.
func (s *Service) weather(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	lang := s.lang(sess)

	var lookup func(ctx context.Context) (*weather.Report, error)
	switch {
	case ev.Kind == fsm.KindLocation && ev.Location != nil:
		lat, lon := ev.Location.Latitude, ev.Location.Longitude
		lookup = func(ctx context.Context) (*weather.Report, error) {
			return s.deps.Weather.ByCoordinates(ctx, lat, lon, lang)
		}
	case ev.Kind == fsm.KindText && strings.TrimSpace(ev.Text) != "":
		city := strings.TrimSpace(ev.Text)
		lookup = func(ctx context.Context) (*weather.Report, error) {
			return s.deps.Weather.ByCity(ctx, city, lang)
		}
	case ev.Kind == fsm.KindButton:
		return nil
	default:
		return s.notify(ctx, sess, "weather.input_only")
	}

	report, err := call(ctx, s.timeouts.Weather, lookup)
	if errors.Is(err, weather.ErrNotFound) {
		return s.notify(ctx, sess, "weather.not_found")
	}
	if err != nil {
		return s.fail(ctx, sess, "weather", err, "weather.error")
	}

	return s.notify(ctx, sess, "weather.report",
		place(report), report.Description, report.TempC, report.FeelsLikeC, report.Humidity, report.WindSpeed)
}

func place(r *weather.Report) string {
	if r.Country == "" {
		return r.Place
	}
	return r.Place + ", " + r.Country
}
