package ingest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const topicFilter = "factories/+/devices/+/telemetry"

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Subscriber owns one broker session. The pipeline processes messages
// serially per session (spec.md §4.1 concurrency contract); horizontal
// scale comes from running more Subscriber processes, not more goroutines
// within one.
type Subscriber struct {
	opts     *mqtt.ClientOptions
	pipeline *Pipeline
}

// NewSubscriber builds a broker session against host/port/credentials.
func NewSubscriber(host string, port int, username, password, clientID string, pipeline *Pipeline) *Subscriber {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	// Reconnection is driven explicitly by Run's backoff loop, not by the
	// client's own auto-reconnect, so every reconnect resubscribes.
	opts.SetAutoReconnect(false)
	opts.SetCleanSession(true)

	return &Subscriber{opts: opts, pipeline: pipeline}
}

// Run connects and subscribes, blocking until ctx is cancelled. On
// disconnect it retries with exponential backoff starting at 1s, doubling
// to a 60s cap, resetting to 1s on a successful reconnect, and
// resubscribing with the same wildcard every time (spec.md §4.1
// reconnection contract).
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		client := mqtt.NewClient(s.opts)
		token := client.Connect()
		if ok := token.WaitTimeout(30 * time.Second); !ok || token.Error() != nil {
			log.Error().Err(token.Error()).Dur("backoff", backoff).Msg("broker connect failed, retrying")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		subToken := client.Subscribe(topicFilter, 1, s.onMessage)
		if ok := subToken.WaitTimeout(30 * time.Second); !ok || subToken.Error() != nil {
			log.Error().Err(subToken.Error()).Msg("broker subscribe failed, reconnecting")
			client.Disconnect(250)
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		log.Info().Str("filter", topicFilter).Msg("subscribed to broker")
		backoff = initialBackoff

		// Block until the session drops or we're asked to shut down.
		<-waitDisconnected(ctx, client)
		client.Disconnect(250)

		select {
		case <-ctx.Done():
			return nil
		default:
			log.Warn().Dur("backoff", backoff).Msg("broker session dropped, reconnecting")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
		}
	}
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.pipeline.HandleMessage(context.Background(), msg.Topic(), msg.Payload())
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// waitDisconnected returns a channel that closes once the client drops its
// connection, so Run can block on the session without polling.
func waitDisconnected(ctx context.Context, client mqtt.Client) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !client.IsConnected() {
					return
				}
			}
		}
	}()
	return done
}
