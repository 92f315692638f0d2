package booking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-registration/internal/model"
	"github.com/iliyamo/exam-registration/internal/repository"
)

type fakeStore struct {
	sessions  []repository.SessionRow
	regs      map[uint64]model.Registration
	nextID    uint64
	bookErrs  []error
	bookCalls int
	lastBook  repository.BookParams
	readErr   error
	cancels   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{regs: map[uint64]model.Registration{}, nextID: 1}
}

func (f *fakeStore) add(userID, examID uint64, status string) model.Registration {
	r := model.Registration{
		ID: f.nextID, ConfirmationCode: model.FormatConfirmationCode(int(f.nextID)),
		UserID: userID, ExamID: examID, TimeslotID: 1, LocationID: 1, Status: status,
	}
	f.regs[r.ID] = r
	f.nextID++
	return r
}

func (f *fakeStore) ListSessions(context.Context) ([]repository.SessionRow, error) {
	return f.sessions, f.readErr
}

func (f *fakeStore) GetSession(_ context.Context, examID, locationID uint64) (repository.SessionRow, error) {
	if f.readErr != nil {
		return repository.SessionRow{}, f.readErr
	}
	for _, s := range f.sessions {
		if s.ExamID == examID && s.LocationID == locationID {
			return s, nil
		}
	}
	return repository.SessionRow{}, sql.ErrNoRows
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.Registration, error) {
	r, ok := f.regs[id]
	if !ok {
		return model.Registration{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) GetDetail(_ context.Context, id uint64) (repository.RegistrationRow, error) {
	r, ok := f.regs[id]
	if !ok {
		return repository.RegistrationRow{}, sql.ErrNoRows
	}
	return repository.RegistrationRow{
		ID: r.ID, ConfirmationCode: r.ConfirmationCode, Status: r.Status, UserID: r.UserID,
		ExamID: r.ExamID, CourseCode: "CS101", ExamType: "Midterm", ExamDate: "2030-05-10",
		ProfessorName: "Zed Moore", Location: "North – Hall, Room 1", StudentEmail: "detail@campus.edu",
	}, nil
}

func (f *fakeStore) CountActiveByUser(_ context.Context, userID uint64) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := 0
	for _, r := range f.regs {
		if r.UserID == userID && r.IsActive() {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountActiveByUserExam(_ context.Context, userID, examID, excludeID uint64) (int, error) {
	n := 0
	for _, r := range f.regs {
		if r.UserID == userID && r.ExamID == examID && r.IsActive() && r.ID != excludeID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Book(_ context.Context, p repository.BookParams) (model.Registration, error) {
	f.bookCalls++
	f.lastBook = p
	if len(f.bookErrs) > 0 {
		err := f.bookErrs[0]
		f.bookErrs = f.bookErrs[1:]
		if err != nil {
			return model.Registration{}, err
		}
	}
	if p.ReplacingID != 0 {
		old := f.regs[p.ReplacingID]
		old.Status = model.StatusCanceled
		f.regs[old.ID] = old
	}
	r := model.Registration{
		ID: f.nextID, ConfirmationCode: model.FormatConfirmationCode(int(f.nextID)),
		UserID: p.UserID, ExamID: p.ExamID, TimeslotID: p.TimeslotID, LocationID: p.LocationID,
		Status: model.StatusActive, CreatedAt: p.Now,
	}
	f.regs[r.ID] = r
	f.nextID++
	return r, nil
}

func (f *fakeStore) Cancel(_ context.Context, id uint64) error {
	f.cancels++
	r, ok := f.regs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if !r.IsActive() {
		return repository.ErrNotActive
	}
	r.Status = model.StatusCanceled
	f.regs[id] = r
	return nil
}

func (f *fakeStore) FacultySearch(context.Context, string) ([]repository.RegistrationRow, error) {
	return nil, f.readErr
}

func (f *fakeStore) PrintLog(context.Context, repository.LogFilter) ([]repository.RegistrationRow, error) {
	return nil, f.readErr
}

func (f *fakeStore) StudentAppointments(context.Context, uint64, repository.AppointmentFilter) ([]repository.RegistrationRow, error) {
	return nil, f.readErr
}

type fakeNotifier struct {
	sent []Confirmation
	err  error
}

func (n *fakeNotifier) NotifyConfirmation(_ context.Context, c Confirmation) error {
	n.sent = append(n.sent, c)
	return n.err
}

var (
	ana = Caller{UserID: 1, Role: model.RoleStudent, Name: "Ana", Email: "ana@campus.edu"}
	ben = Caller{UserID: 2, Role: model.RoleStudent, Name: "Ben", Email: "ben@campus.edu"}
	zed = Caller{UserID: 3, Role: model.RoleFaculty, Name: "Zed"}
)

func newTestManager(store *fakeStore, n Notifier) *Manager {
	m := NewManager(store, store, n, DefaultPolicy())
	m.now = func() time.Time { return time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func confirmIn(examID uint64) ConfirmInput {
	return ConfirmInput{ExamID: examID, TimeslotID: 2, LocationID: 1}
}

func TestListSessionsHidesFullAndOrders(t *testing.T) {
	store := newFakeStore()
	store.sessions = []repository.SessionRow{
		{ExamID: 1, ExamDate: "2030-05-12", ProfessorName: "Zed", LocationID: 1, Remaining: 3},
		{ExamID: 2, ExamDate: "2030-05-10", ProfessorName: "Zed", LocationID: 2, Remaining: 1},
		{ExamID: 3, ExamDate: "2030-05-10", ProfessorName: "Amy", LocationID: 9, Remaining: 0},
		{ExamID: 4, ExamDate: "2030-05-10", ProfessorName: "Amy", LocationID: 4, Remaining: 2},
		{ExamID: 5, ExamDate: "2030-05-10", ProfessorName: "Zed", LocationID: 1, Remaining: -1},
	}
	list, err := newTestManager(store, nil).ListSessions(context.Background())
	require.NoError(t, err)

	var ids []uint64
	for _, s := range list.Sessions {
		ids = append(ids, s.ExamID)
	}
	assert.Equal(t, []uint64{4, 2, 1}, ids)
	assert.Equal(t, []string{"2030-05-10", "2030-05-12"}, list.Dates)
	assert.Len(t, list.Timeslots, 9)
	assert.Equal(t, "2030-05-01", list.MinDate)
	assert.Equal(t, "2030-10-28", list.MaxDate)
}

func TestListSessionsStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("db down")
	_, err := newTestManager(store, nil).ListSessions(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestReview(t *testing.T) {
	store := newFakeStore()
	store.sessions = []repository.SessionRow{{ExamID: 1, ExamType: "Midterm", LocationID: 1, LocationName: "North", Remaining: 2}}
	m := newTestManager(store, nil)
	ctx := context.Background()

	_, err := m.Review(ctx, ana, ReviewInput{ExamID: 1, LocationID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	rv, err := m.Review(ctx, ana, ReviewInput{ExamID: 1, LocationID: 1, TimeslotID: 3})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", rv.ExamType)
	require.NotNil(t, rv.StartTime)
	assert.Equal(t, "10:00", *rv.StartTime)
	assert.Equal(t, "11:00", *rv.EndTime)

	rv, err = m.Review(ctx, ana, ReviewInput{ExamID: 1, LocationID: 1, TimeslotID: 12})
	require.NoError(t, err)
	assert.Nil(t, rv.StartTime)
	assert.Nil(t, rv.EndTime)

	_, err = m.Review(ctx, ana, ReviewInput{ExamID: 1, LocationID: 7, TimeslotID: 3})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, store.bookCalls)
	assert.Empty(t, store.regs)
}

func TestReviewChecksReplacedOwnership(t *testing.T) {
	store := newFakeStore()
	store.sessions = []repository.SessionRow{{ExamID: 1, LocationID: 1, Remaining: 2}}
	theirs := store.add(ben.UserID, 1, model.StatusActive)

	_, err := newTestManager(store, nil).Review(context.Background(), ana,
		ReviewInput{ExamID: 1, LocationID: 1, TimeslotID: 3, ReplacingRegistrationID: theirs.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmCreatesAndNotifies(t *testing.T) {
	store := newFakeStore()
	n := &fakeNotifier{}
	conf, err := newTestManager(store, n).Confirm(context.Background(), ana, confirmIn(1))
	require.NoError(t, err)

	assert.Equal(t, "CSN001", conf.ConfirmationCode)
	assert.Equal(t, model.StatusActive, conf.Status)
	assert.Equal(t, "09:00", *conf.StartTime)
	assert.Equal(t, "Zed Moore", conf.ProfessorName)
	assert.True(t, store.lastBook.EnforceCapacity)
	assert.Equal(t, time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC), store.lastBook.Now)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "ana@campus.edu", n.sent[0].Email)
	assert.Equal(t, conf.RegistrationID, n.sent[0].RegistrationID)
}

func TestConfirmValidation(t *testing.T) {
	m := newTestManager(newFakeStore(), nil)
	ctx := context.Background()

	_, err := m.Confirm(ctx, ana, ConfirmInput{ExamID: 1, LocationID: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = m.Confirm(ctx, ana, ConfirmInput{ExamID: 1, LocationID: 1, TimeslotID: 10})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmEnforcesActiveCap(t *testing.T) {
	store := newFakeStore()
	store.add(ana.UserID, 11, model.StatusActive)
	store.add(ana.UserID, 12, model.StatusActive)
	store.add(ana.UserID, 13, model.StatusActive)
	store.add(ana.UserID, 14, model.StatusCanceled)

	_, err := newTestManager(store, nil).Confirm(context.Background(), ana, confirmIn(1))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Zero(t, store.bookCalls)
}

func TestConfirmRejectsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.add(ana.UserID, 1, model.StatusActive)

	_, err := newTestManager(store, nil).Confirm(context.Background(), ana, confirmIn(1))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Zero(t, store.bookCalls)
}

func TestConfirmAfterCancelIsAllowed(t *testing.T) {
	store := newFakeStore()
	store.add(ana.UserID, 1, model.StatusCanceled)

	_, err := newTestManager(store, nil).Confirm(context.Background(), ana, confirmIn(1))
	assert.NoError(t, err)
}

func TestRescheduleBypassesCapAndReplaces(t *testing.T) {
	store := newFakeStore()
	old := store.add(ana.UserID, 1, model.StatusActive)
	store.add(ana.UserID, 2, model.StatusActive)
	store.add(ana.UserID, 3, model.StatusActive)

	in := confirmIn(1)
	in.ReplacingRegistrationID = old.ID
	conf, err := newTestManager(store, nil).Confirm(context.Background(), ana, in)
	require.NoError(t, err)

	assert.Equal(t, old.ID, store.lastBook.ReplacingID)
	assert.Equal(t, old.ID, conf.ReplacedRegistrationID)
	assert.Equal(t, model.StatusCanceled, store.regs[old.ID].Status)
	n, _ := store.CountActiveByUser(context.Background(), ana.UserID)
	assert.Equal(t, 3, n)
}

func TestRescheduleRequiresOwnedActiveRegistration(t *testing.T) {
	store := newFakeStore()
	theirs := store.add(ben.UserID, 1, model.StatusActive)
	gone := store.add(ana.UserID, 2, model.StatusCanceled)
	m := newTestManager(store, nil)
	ctx := context.Background()

	in := confirmIn(1)
	in.ReplacingRegistrationID = theirs.ID
	_, err := m.Confirm(ctx, ana, in)
	assert.ErrorIs(t, err, ErrNotFound)

	in.ReplacingRegistrationID = gone.ID
	_, err = m.Confirm(ctx, ana, in)
	assert.ErrorIs(t, err, ErrValidation)

	in.ReplacingRegistrationID = 99
	_, err = m.Confirm(ctx, ana, in)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.bookCalls)
}

func TestConfirmRetriesTakenCode(t *testing.T) {
	store := newFakeStore()
	store.bookErrs = []error{repository.ErrCodeTaken, repository.ErrCodeTaken}

	conf, err := newTestManager(store, nil).Confirm(context.Background(), ana, confirmIn(1))
	require.NoError(t, err)
	assert.Equal(t, 3, store.bookCalls)
	assert.NotEmpty(t, conf.ConfirmationCode)
}

func TestConfirmCodeRetriesExhausted(t *testing.T) {
	store := newFakeStore()
	store.bookErrs = []error{repository.ErrCodeTaken, repository.ErrCodeTaken, repository.ErrCodeTaken, repository.ErrCodeTaken}
	n := &fakeNotifier{}

	_, err := newTestManager(store, n).Confirm(context.Background(), ana, confirmIn(1))
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 4, store.bookCalls)
	assert.Empty(t, n.sent)
}

func TestConfirmMapsStoreErrors(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{repository.ErrSessionFull, ErrCapacity},
		{repository.ErrDuplicateActive, ErrDuplicate},
		{repository.ErrNotFound, ErrNotFound},
		{repository.ErrNotActive, ErrValidation},
		{errors.New("foreign key constraint failed"), ErrTransient},
	}
	for _, tc := range cases {
		store := newFakeStore()
		store.bookErrs = []error{tc.err}
		n := &fakeNotifier{}
		_, err := newTestManager(store, n).Confirm(context.Background(), ana, confirmIn(1))
		assert.ErrorIs(t, err, tc.kind, "store error %v", tc.err)
		assert.Equal(t, tc.kind, KindOf(err))
		assert.Empty(t, n.sent)
		assert.Empty(t, store.regs)
	}
}

func TestConfirmSucceedsWhenNotificationFails(t *testing.T) {
	store := newFakeStore()
	n := &fakeNotifier{err: errors.New("smtp down")}

	conf, err := newTestManager(store, n).Confirm(context.Background(), ana, confirmIn(1))
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, store.regs[conf.RegistrationID].Status)
	assert.Len(t, n.sent, 1)
}

func TestConfirmFallsBackToStoredEmail(t *testing.T) {
	store := newFakeStore()
	n := &fakeNotifier{}
	caller := ana
	caller.Email = ""

	_, err := newTestManager(store, n).Confirm(context.Background(), caller, confirmIn(1))
	require.NoError(t, err)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "detail@campus.edu", n.sent[0].Email)
}

func TestCancel(t *testing.T) {
	store := newFakeStore()
	mine := store.add(ana.UserID, 1, model.StatusActive)
	theirs := store.add(ben.UserID, 1, model.StatusActive)
	m := newTestManager(store, nil)
	ctx := context.Background()

	_, err := m.Cancel(ctx, ana, theirs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, model.StatusActive, store.regs[theirs.ID].Status)

	_, err = m.Cancel(ctx, ana, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := m.Cancel(ctx, ana, mine.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCanceled)
	assert.Equal(t, model.StatusCanceled, store.regs[mine.ID].Status)

	res, err = m.Cancel(ctx, ana, mine.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCanceled)
	assert.Equal(t, model.StatusCanceled, res.Status)
	assert.Equal(t, 1, store.cancels)
}

func TestFacultyCancelSkipsOwnership(t *testing.T) {
	store := newFakeStore()
	theirs := store.add(ben.UserID, 1, model.StatusActive)

	res, err := newTestManager(store, nil).Cancel(context.Background(), zed, theirs.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCanceled)
	assert.Equal(t, model.StatusCanceled, store.regs[theirs.ID].Status)
}

func TestStartReschedule(t *testing.T) {
	store := newFakeStore()
	mine := store.add(ana.UserID, 1, model.StatusActive)
	theirs := store.add(ben.UserID, 1, model.StatusActive)
	m := newTestManager(store, nil)
	ctx := context.Background()

	ticket, err := m.StartReschedule(ctx, ana, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, ticket.ReplacingRegistrationID)
	assert.Equal(t, mine.ConfirmationCode, ticket.Registration.ConfirmationCode)
	assert.Equal(t, model.StatusActive, store.regs[mine.ID].Status)

	_, err = m.StartReschedule(ctx, ana, theirs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingsValidateDateRange(t *testing.T) {
	m := newTestManager(newFakeStore(), nil)
	ctx := context.Background()

	_, err := m.PrintLog(ctx, repository.LogFilter{StartDate: "2030-06-01", EndDate: "2030-05-01"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = m.MyAppointments(ctx, ana, repository.AppointmentFilter{StartDate: "2030-06-01", EndDate: "2030-05-01"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListingsWrapStoreFailures(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("db down")
	m := newTestManager(store, nil)
	ctx := context.Background()

	_, err := m.FacultySearch(ctx, "x")
	assert.ErrorIs(t, err, ErrTransient)
	_, err = m.PrintLog(ctx, repository.LogFilter{})
	assert.ErrorIs(t, err, ErrTransient)
	_, err = m.MyAppointments(ctx, ana, repository.AppointmentFilter{})
	assert.ErrorIs(t, err, ErrTransient)
}

func TestErrorMessages(t *testing.T) {
	err := transient(errors.New("boom"))
	assert.Equal(t, "could not complete the booking, please try again", err.Error())
	assert.Nil(t, KindOf(errors.New("plain")))
}
