package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/store"
)

// errStreamEnded reports that the event subscription was closed by the engine,
// either because the request ended or because the client fell behind.
var errStreamEnded = errors.New("event stream ended")

// handleDiscussionSocket is a two-way chat channel for one discussion.
// Incoming frames are MessageRequest objects; outgoing frames are events.
// Invalid messages are answered with an ErrorResponse frame and do not
// close the socket.
func handleDiscussionSocket(logger *slog.Logger, eng *engine.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, member, err := discussionMember(r, st)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		events, err := eng.SubscribeDiscussion(ctx, d.ID, member.ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			for {
				var req MessageRequest
				if err := wsjson.Read(gctx, conn, &req); err != nil {
					return err
				}
				_, err := eng.SendMessage(gctx, d.ID, member.ID, req.Content)
				if err == nil {
					continue
				}
				if statusFor(err) == http.StatusInternalServerError {
					return err
				}
				if err := wsjson.Write(gctx, conn, ErrorResponse{Error: err.Error()}); err != nil {
					return err
				}
			}
		})

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case ev, ok := <-events:
					if !ok {
						return errStreamEnded
					}
					if err := wsjson.Write(gctx, conn, ev); err != nil {
						return err
					}
				}
			}
		})

		err = g.Wait()
		if errors.Is(err, errStreamEnded) {
			conn.Close(websocket.StatusTryAgainLater, "event stream ended, reconnect to resync")
			return
		}
		if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, diplomacy.ErrNotMember) {
			return
		}
		logger.Debug("websocket ended", "discussion_id", d.ID, "error", err)
	}
}
