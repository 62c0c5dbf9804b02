package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	streamWriteWait  = 5 * time.Second
	maxStreamSymbols = 20
)

type priceFrame struct {
	Prices    interface{} `json:"prices"`
	Timestamp int64       `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PriceStreamHandler upgrades to a websocket and pushes quotes for ?instruments= every interval
// until the client goes away or the server context ends.
func PriceStreamHandler(prices quoter, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbols := symbolsParam(r.URL.Query().Get("instruments"))
		if len(symbols) == 0 || len(symbols) > maxStreamSymbols {
			writeMessage(w, http.StatusBadRequest, "instruments must list 1 to 20 symbols")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// the read side only watches for the client closing
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		log := logger.WithFields(map[string]interface{}{
			"component": "PriceStream",
			"symbols":   symbols,
		})
		log.Debug("price stream opened")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			quotes, err := prices.CurrentQuotes(ctx, symbols)
			if err != nil {
				log.WithError(err).Debug("price stream closed")
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(priceFrame{Prices: quotes, Timestamp: time.Now().Unix()}); err != nil {
				log.WithError(err).Debug("price stream write failed")
				return
			}

			select {
			case <-ctx.Done():
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(streamWriteWait),
				)
				return
			case <-ticker.C:
			}
		}
	}
}
