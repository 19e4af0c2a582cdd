package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/session"
)

// command is one message from a websocket client. Fields not used by Op
// are ignored.
type command struct {
	Op         string        `json:"op"`
	View       *fractal.View `json:"view,omitempty"`
	Scheme     string        `json:"scheme,omitempty"`
	X          float64       `json:"x,omitempty"`
	Y          float64       `json:"y,omitempty"`
	DX         float64       `json:"dx,omitempty"`
	DY         float64       `json:"dy,omitempty"`
	Steps      int           `json:"steps,omitempty"`
	Resolution int           `json:"res,omitempty"`
}

type errorMessage struct {
	Error string `json:"error"`
}

// handleWebsocket gives each connection its own session. Every command is
// answered with a binary PNG frame, or a JSON error as a text message.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer c.CloseNow()

	sess := session.New(
		session.WithWorkers(s.workers),
		session.WithResolution(min(DefaultResolution, s.maxRes)),
		session.WithLogger(s.logger),
	)

	ctx := r.Context()
	for {
		var cmd command
		if err := wsjson.Read(ctx, c, &cmd); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.Close(websocket.StatusNormalClosure, "")
			default:
				s.logger.Debug("websocket read ended", "err", err)
			}
			return
		}

		frame, err := s.apply(sess, cmd)
		if err != nil {
			if werr := wsjson.Write(ctx, c, errorMessage{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := c.Write(ctx, websocket.MessageBinary, frame); err != nil {
			return
		}
	}
}

func (s *Server) apply(sess *session.Session, cmd command) ([]byte, error) {
	res := sess.Resolution()
	if cmd.Resolution > 0 {
		res = min(cmd.Resolution, s.maxRes)
		if err := sess.SetResolution(res); err != nil {
			return nil, err
		}
	}

	var err error
	switch cmd.Op {
	case "render":
	case "view":
		if cmd.View == nil {
			return nil, errors.New("view: missing view")
		}
		err = sess.SetView(*cmd.View)
	case "zoom":
		steps := cmd.Steps
		if steps == 0 {
			steps = 1
		}
		err = sess.ZoomAt(cmd.X, cmd.Y, res, steps)
	case "pan":
		err = sess.Pan(cmd.DX, cmd.DY)
	case "center":
		err = sess.Recenter(cmd.X, cmd.Y, res)
	case "seed":
		err = sess.PickSeed(cmd.X, cmd.Y, res)
	case "scheme":
		var sc palette.Scheme
		if sc, err = palette.ByName(cmd.Scheme); err == nil {
			err = sess.SetScheme(sc)
		}
	case "julia":
		err = sess.ToggleJulia()
	case "reset":
		err = sess.Reset()
	default:
		return nil, fmt.Errorf("unknown op %q", cmd.Op)
	}
	if err != nil {
		return nil, err
	}

	buf, err := sess.Render(0)
	if err != nil {
		return nil, err
	}
	return s.encodePNG(buf)
}
