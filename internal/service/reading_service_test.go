package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-reading-log/internal/models"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

type stubCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return jsoniter.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := jsoniter.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	s.store = nil
	return nil
}

type fakeStudentRepo struct {
	records    map[string]*models.StudentRecord
	totals     []models.StudentTotal
	totalCalls int
	created    []*models.StudentRecord
}

func (f *fakeStudentRepo) FindByNumber(_ context.Context, number string) (*models.StudentRecord, error) {
	record, ok := f.records[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, record *models.StudentRecord) error {
	if f.records == nil {
		f.records = make(map[string]*models.StudentRecord)
	}
	f.records[record.Number] = record
	f.created = append(f.created, record)
	return nil
}

func (f *fakeStudentRepo) ListTotals(context.Context) ([]models.StudentTotal, error) {
	f.totalCalls++
	return f.totals, nil
}

type fakeEntryRepo struct {
	history  map[string][]models.BookEntry
	appended []models.NewBookEntry
	err      error
}

func (f *fakeEntryRepo) ListByStudent(_ context.Context, number string) ([]models.BookEntry, error) {
	return f.history[number], nil
}

func (f *fakeEntryRepo) Append(_ context.Context, number string, entry models.NewBookEntry) (*models.BookEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.appended = append(f.appended, entry)
	last := f.history[number]
	created := models.BookEntry{No: 1, Date: entry.Date, Title: entry.Title, Publisher: entry.Publisher, Impression: entry.Impression, Pages: entry.Pages, CumulativePages: entry.Pages}
	if len(last) > 0 {
		created.No = last[0].No + 1
		created.CumulativePages = last[0].CumulativePages + entry.Pages
	}
	return &created, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newReadingService(students *fakeStudentRepo, entries *fakeEntryRepo, cacheRepo CacheRepository) *ReadingService {
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), cacheRepo != nil)
	return NewReadingService(students, entries, cache, nil, zap.NewNop(), ReadingConfig{DefaultPassword: "0000"})
}

func TestReadingServiceLoginReturnsHistory(t *testing.T) {
	students := &fakeStudentRepo{records: map[string]*models.StudentRecord{
		"1": {Number: "1", Name: "Kim", PasswordHash: hashPassword(t, "secret")},
	}}
	entries := &fakeEntryRepo{history: map[string][]models.BookEntry{
		"1": {{No: 2, Title: "Dune", Pages: 50, CumulativePages: 80}, {No: 1, Title: "Hobbit", Pages: 30, CumulativePages: 30}},
	}}
	svc := newReadingService(students, entries, nil)

	data, err := svc.Login(context.Background(), models.LoginCredentials{Number: " 1 ", Name: "Kim", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "1", data.Student.Number)
	assert.Empty(t, data.Student.Password)
	require.NotNil(t, data.Student.TotalPageCount)
	assert.Equal(t, 80, *data.Student.TotalPageCount)
	assert.Len(t, data.History, 2)
}

func TestReadingServiceLoginRejectsBadCredentials(t *testing.T) {
	students := &fakeStudentRepo{records: map[string]*models.StudentRecord{
		"1": {Number: "1", Name: "Kim", PasswordHash: hashPassword(t, "secret")},
	}}
	svc := newReadingService(students, &fakeEntryRepo{}, nil)

	_, err := svc.Login(context.Background(), models.LoginCredentials{Number: "1", Name: "Kim", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "비밀번호가 일치하지 않습니다.", appErrors.FromError(err).Message)

	_, err = svc.Login(context.Background(), models.LoginCredentials{Number: "1", Name: "Lee", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, "이름이 일치하지 않습니다.", appErrors.FromError(err).Message)

	_, err = svc.Login(context.Background(), models.LoginCredentials{Number: "1", Name: "Kim"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestReadingServiceLoginRegistersWithDefaultPassword(t *testing.T) {
	students := &fakeStudentRepo{}
	cacheRepo := &stubCacheRepo{}
	svc := newReadingService(students, &fakeEntryRepo{}, cacheRepo)

	data, err := svc.Login(context.Background(), models.LoginCredentials{Number: "9", Name: "Yoon", Password: "0000"})
	require.NoError(t, err)
	assert.Equal(t, "Yoon", data.Student.Name)
	assert.Empty(t, data.History)
	require.Len(t, students.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(students.created[0].PasswordHash), []byte("0000")))
	assert.Equal(t, []string{dashboardCacheKey + "*"}, cacheRepo.invalidated)
}

func TestReadingServiceLoginUnknownStudent(t *testing.T) {
	svc := newReadingService(&fakeStudentRepo{}, &fakeEntryRepo{}, nil)

	_, err := svc.Login(context.Background(), models.LoginCredentials{Number: "9", Name: "Yoon", Password: "1234"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "'0000'")
}

func TestReadingServiceAddEntry(t *testing.T) {
	entries := &fakeEntryRepo{history: map[string][]models.BookEntry{
		"1": {{No: 2, Pages: 50, CumulativePages: 80}},
	}}
	cacheRepo := &stubCacheRepo{}
	svc := newReadingService(&fakeStudentRepo{}, entries, cacheRepo)

	created, err := svc.AddEntry(context.Background(), models.Student{Number: "1", Name: "Kim"}, models.NewBookEntry{
		Date: "2024-03-09", Title: " Emma ", Publisher: "P", Impression: "good", Pages: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, created.No)
	assert.Equal(t, 125, created.CumulativePages)
	assert.Equal(t, "Emma", created.Title)
	assert.Len(t, cacheRepo.invalidated, 1)
}

func TestReadingServiceAddEntryValidation(t *testing.T) {
	entries := &fakeEntryRepo{}
	svc := newReadingService(&fakeStudentRepo{}, entries, nil)
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, models.Student{Number: "1"}, models.NewBookEntry{Date: "2024-03-09", Title: "T", Publisher: "P", Impression: "I", Pages: 0})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.AddEntry(ctx, models.Student{Number: "1"}, models.NewBookEntry{Date: "09/03/2024", Title: "T", Publisher: "P", Impression: "I", Pages: 3})
	require.Error(t, err)

	_, err = svc.AddEntry(ctx, models.Student{}, models.NewBookEntry{Date: "2024-03-09", Title: "T", Publisher: "P", Impression: "I", Pages: 3})
	require.Error(t, err)
	assert.Empty(t, entries.appended)
}

func TestReadingServiceAddEntryUnknownStudent(t *testing.T) {
	svc := newReadingService(&fakeStudentRepo{}, &fakeEntryRepo{err: sql.ErrNoRows}, nil)

	_, err := svc.AddEntry(context.Background(), models.Student{Number: "404"}, models.NewBookEntry{Date: "2024-03-09", Title: "T", Publisher: "P", Impression: "I", Pages: 3})
	require.Error(t, err)
	assert.Equal(t, "학생 정보를 찾을 수 없습니다.", appErrors.FromError(err).Message)
}

func TestReadingServiceDashboardCaching(t *testing.T) {
	students := &fakeStudentRepo{totals: []models.StudentTotal{
		{Number: "1", Name: "Kim", TotalPageCount: 300},
		{Number: "2", Name: "Lee", TotalPageCount: 0},
	}}
	svc := newReadingService(students, &fakeEntryRepo{}, &stubCacheRepo{})
	ctx := context.Background()

	first, hit, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 2)
	require.NotNil(t, first[1].TotalPageCount)
	assert.Equal(t, 0, *first[1].TotalPageCount)

	second, hit, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, students.totalCalls)
}
