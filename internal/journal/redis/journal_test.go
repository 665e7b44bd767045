/*
Copyright 2026 The Launchline Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Test for the redis-backed startup journal.

package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/launchline/launchline/internal/journal"
	redisjournal "github.com/launchline/launchline/internal/journal/redis"
)

func TestRedisJournal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Journal Suite")
}

var (
	redisUrl string
	minirds  *miniredis.Miniredis = nil
)

func init() {
	redisUrl = os.Getenv("LAUNCHLINE_REDIS_URL")
}

var _ = BeforeSuite(func() {
	if redisUrl == "" {
		minirds = miniredis.RunT(GinkgoT())
		Expect(minirds).ToNot(BeNil())
		redisUrl = "redis://" + minirds.Addr()
	}
})

var _ = Describe("Redis Journal", func() {
	var jrnl *redisjournal.Journal
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		jrnl, err = redisjournal.New(ctx, &redisjournal.Config{
			URL:         redisUrl,
			ServiceName: "test-service",
			TTL:         time.Hour,
			Timeout:     2 * time.Second,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(jrnl).ToNot(BeNil())
	})

	AfterEach(func() {
		Expect(jrnl.Close()).To(Succeed())
	})

	It("rejects an empty configuration", func() {
		_, err := redisjournal.New(ctx, nil)
		Expect(err).To(HaveOccurred())

		_, err = redisjournal.New(ctx, &redisjournal.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unparseable url", func() {
		_, err := redisjournal.New(ctx, &redisjournal.Config{URL: "not-a-url"})
		Expect(err).To(HaveOccurred())
	})

	It("records and reads back events in order", func() {
		runID := "run-order"
		jrnl.Record(ctx, journal.Event{RunID: runID, Type: journal.EventRunStarted})
		jrnl.Record(ctx, journal.Event{RunID: runID, Type: journal.EventHelperStarted, PID: 77})
		jrnl.Record(ctx, journal.Event{RunID: runID, Type: journal.EventPrimaryExited, Detail: "0"})

		events, err := jrnl.Events(ctx, runID)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(3))
		Expect(events[0].Type).To(Equal(journal.EventRunStarted))
		Expect(events[1].Type).To(Equal(journal.EventHelperStarted))
		Expect(events[1].PID).To(Equal(77))
		Expect(events[2].Detail).To(Equal("0"))
	})

	It("keeps runs separate", func() {
		jrnl.Record(ctx, journal.Event{RunID: "run-a", Type: journal.EventRunStarted})
		jrnl.Record(ctx, journal.Event{RunID: "run-b", Type: journal.EventRunStarted})
		jrnl.Record(ctx, journal.Event{RunID: "run-b", Type: journal.EventReady})

		eventsA, err := jrnl.Events(ctx, "run-a")
		Expect(err).ToNot(HaveOccurred())
		Expect(eventsA).To(HaveLen(1))

		eventsB, err := jrnl.Events(ctx, "run-b")
		Expect(err).ToNot(HaveOccurred())
		Expect(eventsB).To(HaveLen(2))
	})

	It("returns no events for an unknown run", func() {
		events, err := jrnl.Events(ctx, "run-unknown")
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("stamps events that carry no timestamp", func() {
		runID := "run-stamp"
		jrnl.Record(ctx, journal.Event{RunID: runID, Type: journal.EventReady})

		events, err := jrnl.Events(ctx, runID)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].At.IsZero()).To(BeFalse())
	})
})
