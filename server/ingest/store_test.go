package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
)

type dailyKey struct {
	device string
	date   time.Time
}

// memStore mimics the merge semantics of the Postgres statements.
type memStore struct {
	mu        sync.Mutex
	members   map[string]activity.Member
	raw       []activity.RawEvent
	processed []activity.ProcessedRecord
	appUsage  map[activity.AppUsageDelta]int
	daily     map[dailyKey]*activity.DailySummary
	devices   map[string]activity.DeviceState
	fail      map[string]error
}

func newMemStore(members ...activity.Member) *memStore {
	s := &memStore{
		members:  make(map[string]activity.Member),
		appUsage: make(map[activity.AppUsageDelta]int),
		daily:    make(map[dailyKey]*activity.DailySummary),
		devices:  make(map[string]activity.DeviceState),
		fail:     make(map[string]error),
	}
	for _, m := range members {
		s.members[m.Email] = m
	}
	return s
}

func (s *memStore) rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raw) + len(s.processed) + len(s.appUsage) + len(s.daily) + len(s.devices)
}

func (s *memStore) MemberByEmail(_ context.Context, email string) (activity.Member, error) {
	if err := s.fail["member"]; err != nil {
		return activity.Member{}, err
	}
	m, ok := s.members[email]
	if !ok {
		return activity.Member{}, activity.ErrUnverified
	}
	return m, nil
}

func (s *memStore) InsertRawEvent(_ context.Context, e activity.RawEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[StepRawEvent]; err != nil {
		return err
	}
	s.raw = append(s.raw, e)
	return nil
}

func (s *memStore) InsertProcessedRecord(_ context.Context, r activity.ProcessedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[StepProcessedRecord]; err != nil {
		return err
	}
	s.processed = append(s.processed, r)
	return nil
}

func (s *memStore) UpsertAppUsage(_ context.Context, d activity.AppUsageDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[StepAppUsage]; err != nil {
		return err
	}
	s.appUsage[d]++
	return nil
}

func (s *memStore) UpsertDailySummary(_ context.Context, d activity.DailyDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[StepDailySummary]; err != nil {
		return err
	}
	k := dailyKey{d.DeviceID, d.Date}
	row, ok := s.daily[k]
	if !ok {
		s.daily[k] = &activity.DailySummary{
			DeviceID:       d.DeviceID,
			Date:           d.Date,
			ScreenSeconds:  d.ScreenSeconds,
			ActiveSeconds:  d.ActiveSeconds,
			IdleSeconds:    d.IdleSeconds,
			LockedSeconds:  d.LockedSeconds,
			Productivity:   d.Productivity,
			Efficiency:     d.Efficiency,
			WindowSwitches: 1,
		}
		return nil
	}
	row.ScreenSeconds += d.ScreenSeconds
	row.ActiveSeconds += d.ActiveSeconds
	row.IdleSeconds += d.IdleSeconds
	row.LockedSeconds += d.LockedSeconds
	row.Productivity = d.Productivity
	row.Efficiency = d.Efficiency
	row.WindowSwitches++
	return nil
}

func (s *memStore) UpsertDeviceState(_ context.Context, st activity.DeviceState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[StepDeviceState]; err != nil {
		return false, err
	}
	_, existed := s.devices[st.DeviceID]
	s.devices[st.DeviceID] = st
	return !existed, nil
}

func (s *memStore) RegisterDevice(_ context.Context, r activity.Registration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.devices[r.DeviceID]
	s.devices[r.DeviceID] = activity.DeviceState{
		DeviceID: r.DeviceID,
		UserName: r.UserName,
		Hostname: r.Hostname,
		OSInfo:   r.OSInfo,
		LastSeen: now,
	}
	return !existed, nil
}

func (s *memStore) TouchDevice(_ context.Context, deviceID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return activity.ErrDeviceNotFound
	}
	d.LastSeen = now
	s.devices[deviceID] = d
	return nil
}

type memArchive struct {
	events []activity.RawEvent
	err    error
}

func (a *memArchive) AppendRawEvent(_ context.Context, e activity.RawEvent) error {
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, e)
	return nil
}

type memSink struct {
	err error
}

func (s memSink) PutScreenshot(_ context.Context, deviceID string, ts time.Time, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return deviceID + "/" + ts.Format("20060102T150405") + ".png", nil
}

var errBoom = errors.New("boom")
