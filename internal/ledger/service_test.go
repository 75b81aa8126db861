package ledger

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/auth"
)

// memStore keeps one record per (student, course, date), like the real repo.
type memStore struct {
	recs map[string]Record
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]Record)}
}

func (m *memStore) key(r Record) string {
	return r.StudentID + "|" + r.CourseID + "|" + r.Date.Format("20060102")
}

func (m *memStore) Upsert(ctx context.Context, rec Record) error {
	m.recs[m.key(rec)] = rec
	return nil
}

func (m *memStore) UpsertBatch(ctx context.Context, recs []Record) error {
	for _, rec := range recs {
		m.recs[m.key(rec)] = rec
	}
	return nil
}

func (m *memStore) ListWindow(ctx context.Context, studentID, courseID string, w Window) ([]Record, error) {
	out := []Record{}
	for _, rec := range m.recs {
		if rec.StudentID == studentID && rec.CourseID == courseID && w.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type recordingTrigger struct {
	courses []string
}

func (r *recordingTrigger) CourseWritten(ctx context.Context, courseID string) {
	r.courses = append(r.courses, courseID)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var faculty = auth.Identity{UserID: "f-1", Role: auth.RoleFaculty}

func TestRecordAttendanceValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, testLogger())
	ctx := context.Background()
	d := day(2025, 1, 10)

	var ve *ValidationError

	err := svc.RecordAttendance(ctx, faculty, "", "c1", d, StatusPresent)
	require.ErrorAs(t, err, &ve)

	err = svc.RecordAttendance(ctx, faculty, "s1", "", d, StatusPresent)
	require.ErrorAs(t, err, &ve)

	err = svc.RecordAttendance(ctx, faculty, "s1", "c1", time.Time{}, StatusPresent)
	require.ErrorAs(t, err, &ve)

	err = svc.RecordAttendance(ctx, faculty, "s1", "c1", d, Status("Late"))
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "status")
}

func TestRecordAttendanceUpsertReplaces(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, testLogger())
	ctx := context.Background()
	d := day(2025, 1, 10)

	require.NoError(t, svc.RecordAttendance(ctx, faculty, "s1", "c1", d, StatusPresent))
	require.NoError(t, svc.RecordAttendance(ctx, faculty, "s1", "c1", d, StatusAbsent))

	w := Window{Start: d, End: d}
	recs, err := svc.RecordsForWindow(ctx, "s1", "c1", w)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusAbsent, recs[0].Status)
	assert.Equal(t, "f-1", recs[0].RecordedBy)
}

func TestRecordBatchReconciliation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, testLogger())
	ctx := context.Background()
	d := day(2025, 1, 10)

	// s4 has an earlier status and is not part of the batch: untouched.
	require.NoError(t, svc.RecordAttendance(ctx, faculty, "s4", "c1", d, StatusPresent))

	marks := map[string]bool{"s1": true, "s2": false, "s3": false}
	require.NoError(t, svc.RecordBatch(ctx, faculty, "c1", d, marks))

	w := Window{Start: d, End: d}
	want := map[string]Status{
		"s1": StatusPresent,
		"s2": StatusAbsent,
		"s3": StatusAbsent,
		"s4": StatusPresent,
	}
	for studentID, status := range want {
		recs, err := svc.RecordsForWindow(ctx, studentID, "c1", w)
		require.NoError(t, err)
		require.Len(t, recs, 1, "student %s", studentID)
		assert.Equal(t, status, recs[0].Status, "student %s", studentID)
	}
}

func TestRecordBatchValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, testLogger())
	ctx := context.Background()
	d := day(2025, 1, 10)

	var ve *ValidationError

	err := svc.RecordBatch(ctx, faculty, "c1", d, nil)
	require.ErrorAs(t, err, &ve)

	err = svc.RecordBatch(ctx, faculty, "c1", d, map[string]bool{"": true})
	require.ErrorAs(t, err, &ve)

	err = svc.RecordBatch(ctx, faculty, "", d, map[string]bool{"s1": true})
	require.ErrorAs(t, err, &ve)
}

func TestWritesFireTrigger(t *testing.T) {
	trigger := &recordingTrigger{}
	svc := NewService(newMemStore(), trigger, testLogger())
	ctx := context.Background()
	d := day(2025, 1, 10)

	require.NoError(t, svc.RecordAttendance(ctx, faculty, "s1", "c1", d, StatusPresent))
	require.NoError(t, svc.RecordBatch(ctx, faculty, "c2", d, map[string]bool{"s1": false}))

	assert.Equal(t, []string{"c1", "c2"}, trigger.courses)

	// Rejected writes must not trigger a pass.
	_ = svc.RecordAttendance(ctx, faculty, "s1", "c3", d, Status("Late"))
	assert.Equal(t, []string{"c1", "c2"}, trigger.courses)
}

func TestRecordsForWindowOrdered(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, testLogger())
	ctx := context.Background()

	for _, d := range []time.Time{day(2025, 1, 12), day(2025, 1, 10), day(2025, 1, 11)} {
		require.NoError(t, svc.RecordAttendance(ctx, faculty, "s1", "c1", d, StatusPresent))
	}

	w := Window{Start: day(2025, 1, 1), End: day(2025, 1, 31)}
	recs, err := svc.RecordsForWindow(ctx, "s1", "c1", w)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Date.Before(recs[1].Date))
	assert.True(t, recs[1].Date.Before(recs[2].Date))
}
