package main

import (
	"context"
	"time"

	"github.com/layr8/hyperate-go"
	"github.com/sirupsen/logrus"
)

// supervisor keeps a client connected and subscribed to a fixed set of
// channels, reconnecting with exponential backoff whenever the connection
// is lost.
type supervisor struct {
	client  *hyperate.Client
	topics  []string
	log     logrus.FieldLogger
	backoff *backoff
	lost    chan error
}

func newSupervisor(client *hyperate.Client, topics []string, log logrus.FieldLogger) *supervisor {
	s := &supervisor{
		client:  client,
		topics:  topics,
		log:     log,
		backoff: newBackoff(initialRetryDelay, maxRetryDelay),
		lost:    make(chan error, 1),
	}
	client.OnDisconnect(func(cause error) {
		// A nil cause means we closed the connection ourselves.
		if cause == nil {
			return
		}
		select {
		case s.lost <- cause:
		default:
		}
	})
	return s
}

// joinAll joins every configured channel. Channels already joined or joining
// are skipped by the client.
func (s *supervisor) joinAll(ctx context.Context) error {
	for _, topic := range s.topics {
		if err := s.client.JoinChannel(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// run connects and then blocks until ctx is done.
func (s *supervisor) run(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	if err := s.joinAll(ctx); err != nil {
		s.log.WithError(err).Warn("initial join failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cause := <-s.lost:
			s.log.WithError(cause).Warn("connection lost")
			s.reconnect(ctx)
		}
	}
}

func (s *supervisor) reconnect(ctx context.Context) {
	for {
		delay := s.backoff.next()
		s.log.WithField("delay", delay).Info("reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		err := s.client.Reconnect(ctx)
		if s.client.IsConnected() {
			// joinAll retries channels whose rejoin failed.
			err = s.joinAll(ctx)
		}
		// Losses raised while retrying are covered by this attempt.
		select {
		case <-s.lost:
		default:
		}
		if err == nil && s.client.IsConnected() {
			s.backoff.reset()
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.log.WithError(err).Warn("reconnect failed")
	}
}
