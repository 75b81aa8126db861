package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/compliance"
	"attendtrack/internal/directory"
	"attendtrack/internal/ledger"
)

// memRecords is an in-memory RecordStore with the same insert-if-absent
// semantics as the Postgres unique constraint.
type memRecords struct {
	recs      map[string]Record
	existsErr error
	insertErr error
	denyNext  bool
}

func newMemRecords() *memRecords {
	return &memRecords{recs: make(map[string]Record)}
}

func dedupKey(studentID, courseID, windowKey string) string {
	return studentID + "|" + courseID + "|" + windowKey
}

func (m *memRecords) Exists(ctx context.Context, studentID, courseID, windowKey string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.recs[dedupKey(studentID, courseID, windowKey)]
	return ok, nil
}

func (m *memRecords) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if m.denyNext {
		m.denyNext = false
		return false, nil
	}
	k := dedupKey(rec.StudentID, rec.CourseID, rec.WindowKey)
	if _, ok := m.recs[k]; ok {
		return false, nil
	}
	m.recs[k] = rec
	return true, nil
}

type memFeed struct {
	entries []Notification
}

func (m *memFeed) InsertNotification(ctx context.Context, n Notification) error {
	m.entries = append(m.entries, n)
	return nil
}

// fakeNotifier records sends and can fail per recipient.
type fakeNotifier struct {
	calls   int
	sent    []string
	failFor map[string]error
}

func (f *fakeNotifier) Send(ctx context.Context, contactEmail, studentName, courseName string, percentage, threshold float64) error {
	f.calls++
	if err := f.failFor[contactEmail]; err != nil {
		return err
	}
	f.sent = append(f.sent, contactEmail)
	return nil
}

var (
	testStudent = directory.Student{ID: "s1", Email: "s1@example.edu", FullName: "Student One"}
	testCourse  = directory.Course{ID: "c1", Name: "Databases", Active: true}
)

func testWindow() ledger.Window {
	return ledger.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func violationSnap() compliance.Snapshot {
	return compliance.Snapshot{
		StudentID:      "s1",
		CourseID:       "c1",
		Window:         testWindow(),
		TotalClasses:   10,
		PresentClasses: 5,
	}
}

func TestDispatchSendsAndRecords(t *testing.T) {
	records := newMemRecords()
	notifier := &fakeNotifier{}
	feed := &memFeed{}
	d := NewDispatcher(records, notifier, feed)

	outcome, err := d.Dispatch(context.Background(), testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 1, notifier.calls)

	exists, err := records.Exists(context.Background(), "s1", "c1", testWindow().Key())
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, feed.entries, 1)
	assert.Equal(t, "s1", feed.entries[0].UserID)
	assert.Equal(t, NotificationTypeAttendanceAlert, feed.entries[0].Type)
	assert.Contains(t, feed.entries[0].Message, "Databases")
	assert.Contains(t, feed.entries[0].Message, "50.00%")
}

func TestDispatchAtMostOnce(t *testing.T) {
	records := newMemRecords()
	notifier := &fakeNotifier{}
	d := NewDispatcher(records, notifier, nil)
	ctx := context.Background()

	outcome, err := d.Dispatch(ctx, testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	outcome, err = d.Dispatch(ctx, testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedDuplicate, outcome)
	assert.Equal(t, 1, notifier.calls)
}

func TestDispatchDifferentWindowAlertsAgain(t *testing.T) {
	records := newMemRecords()
	notifier := &fakeNotifier{}
	d := NewDispatcher(records, notifier, nil)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)

	other := ledger.Window{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	outcome, err := d.Dispatch(ctx, testStudent, testCourse, other, violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 2, notifier.calls)
}

func TestDispatchFailureDoesNotPoisonDedup(t *testing.T) {
	records := newMemRecords()
	notifier := &fakeNotifier{failFor: map[string]error{"s1@example.edu": errors.New("smtp down")}}
	d := NewDispatcher(records, notifier, nil)
	ctx := context.Background()

	outcome, err := d.Dispatch(ctx, testStudent, testCourse, testWindow(), violationSnap(), 75)
	assert.Equal(t, OutcomeFailed, outcome)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "s1", de.StudentID)

	exists, err := records.Exists(ctx, "s1", "c1", testWindow().Key())
	require.NoError(t, err)
	assert.False(t, exists, "failed send must not write an alert record")

	// Transport recovers; the retry goes through.
	notifier.failFor = nil
	outcome, err = d.Dispatch(ctx, testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
}

func TestDispatchInsertRaceLoserSkips(t *testing.T) {
	records := newMemRecords()
	records.denyNext = true // a concurrent run wins the insert
	notifier := &fakeNotifier{}
	d := NewDispatcher(records, notifier, nil)

	outcome, err := d.Dispatch(context.Background(), testStudent, testCourse, testWindow(), violationSnap(), 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedDuplicate, outcome)
}

func TestDispatchStoreFailureIsFatal(t *testing.T) {
	records := newMemRecords()
	records.existsErr = errors.New("db gone")
	d := NewDispatcher(records, &fakeNotifier{}, nil)

	outcome, err := d.Dispatch(context.Background(), testStudent, testCourse, testWindow(), violationSnap(), 75)
	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)
	var de *DispatchError
	assert.False(t, errors.As(err, &de), "store failures are not transport failures")
}
