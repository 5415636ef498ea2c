package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
)

// memDB is an in-memory record store shared by the fake stores. A single
// mutex stands in for the row locks of the real store.
type memDB struct {
	mu            sync.Mutex
	exams         map[uuid.UUID]*model.Exam
	attempts      map[uuid.UUID]*model.Attempt
	responses     map[uuid.UUID]map[uuid.UUID]model.Response
	lateCodes     []*model.LateCode
	users         map[string]*model.User
	transitions   int
	responseSaves int
}

func newMemDB() *memDB {
	return &memDB{
		exams:     make(map[uuid.UUID]*model.Exam),
		attempts:  make(map[uuid.UUID]*model.Attempt),
		responses: make(map[uuid.UUID]map[uuid.UUID]model.Response),
		users:     make(map[string]*model.User),
	}
}

func cloneExam(e *model.Exam, withQuestions bool) *model.Exam {
	c := *e
	c.Questions = nil
	if withQuestions {
		c.Questions = make([]model.Question, len(e.Questions))
		for i, q := range e.Questions {
			q.Options = append([]model.Option(nil), q.Options...)
			c.Questions[i] = q
		}
	}
	return &c
}

func assignIDs(exam *model.Exam) {
	for i := range exam.Questions {
		q := &exam.Questions[i]
		q.ID = uuid.New()
		q.ExamID = exam.ID
		q.Position = i
		for j := range q.Options {
			q.Options[j].ID = uuid.New()
			q.Options[j].QuestionID = q.ID
			q.Options[j].Position = j
		}
	}
}

type fakeExams struct{ db *memDB }

func (f fakeExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneExam(e, false), nil
}

func (f fakeExams) GetWithQuestions(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneExam(e, true), nil
}

func (f fakeExams) Create(_ context.Context, exam *model.Exam) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	exam.ID = uuid.New()
	exam.CreatedAt = time.Now()
	exam.UpdatedAt = exam.CreatedAt
	assignIDs(exam)
	f.db.exams[exam.ID] = cloneExam(exam, true)
	return nil
}

func (f fakeExams) Update(_ context.Context, exam *model.Exam) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.exams[exam.ID]
	if !ok {
		return false, repository.ErrNotFound
	}
	stored.Title = exam.Title
	stored.Description = exam.Description
	stored.StartTime = exam.StartTime
	stored.EndTime = exam.EndTime
	stored.DurationMinutes = exam.DurationMinutes
	stored.CloseMode = exam.CloseMode
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Second)
	exam.UpdatedAt = stored.UpdatedAt

	for _, a := range f.db.attempts {
		if a.ExamID == exam.ID {
			return false, nil
		}
	}
	assignIDs(exam)
	stored.Questions = cloneExam(exam, true).Questions
	return true, nil
}

func (f fakeExams) Delete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.exams[id]; !ok {
		return repository.ErrNotFound
	}
	for aid, a := range f.db.attempts {
		if a.ExamID == id {
			delete(f.db.responses, aid)
			delete(f.db.attempts, aid)
		}
	}
	kept := f.db.lateCodes[:0]
	for _, lc := range f.db.lateCodes {
		if lc.ExamID != id {
			kept = append(kept, lc)
		}
	}
	f.db.lateCodes = kept
	delete(f.db.exams, id)
	return nil
}

func (f fakeExams) GetQuestion(_ context.Context, examID, questionID uuid.UUID) (*model.Question, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.exams[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, q := range e.Questions {
		if q.ID == questionID {
			q.Options = nil
			return &q, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeExams) GetOption(_ context.Context, questionID, optionID uuid.UUID) (*model.Option, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, e := range f.db.exams {
		for _, q := range e.Questions {
			if q.ID != questionID {
				continue
			}
			for _, o := range q.Options {
				if o.ID == optionID {
					return &o, nil
				}
			}
		}
	}
	return nil, repository.ErrNotFound
}

type fakeAttempts struct{ db *memDB }

func (f fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f fakeAttempts) GetByExamAndStudent(_ context.Context, examID, studentID uuid.UUID) (*model.Attempt, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, a := range f.db.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			c := *a
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeAttempts) Create(_ context.Context, a *model.Attempt, lateCode string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.exams[a.ExamID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range f.db.attempts {
		if existing.ExamID == a.ExamID && existing.StudentID == a.StudentID {
			return repository.ErrAttemptExists
		}
	}

	var code *model.LateCode
	if lateCode != "" {
		for _, lc := range f.db.lateCodes {
			if lc.ExamID == a.ExamID && lc.Code == lateCode && lc.UsedAt == nil {
				code = lc
				break
			}
		}
		if code == nil {
			return repository.ErrLateCodeRejected
		}
	}

	a.ID = uuid.New()
	a.Status = model.AttemptStatusStarted
	c := *a
	f.db.attempts[a.ID] = &c
	if code != nil {
		usedAt, usedBy := a.StartedAt, a.StudentID
		code.UsedAt = &usedAt
		code.UsedBy = &usedBy
	}
	return nil
}

func (f fakeAttempts) UpsertResponse(_ context.Context, resp *model.Response) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.attempts[resp.AttemptID]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != model.AttemptStatusStarted {
		return repository.ErrAttemptClosed
	}
	byQuestion := f.db.responses[resp.AttemptID]
	if byQuestion == nil {
		byQuestion = make(map[uuid.UUID]model.Response)
		f.db.responses[resp.AttemptID] = byQuestion
	}
	if prev, ok := byQuestion[resp.QuestionID]; ok {
		resp.ID = prev.ID
	} else {
		resp.ID = uuid.New()
	}
	resp.UpdatedAt = time.Now()
	byQuestion[resp.QuestionID] = *resp
	f.db.responseSaves++
	return nil
}

func (f fakeAttempts) Complete(_ context.Context, id uuid.UUID, submittedAt time.Time, score func([]model.ScoredResponse) int) (*model.Attempt, bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a, ok := f.db.attempts[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if a.IsCompleted() {
		c := *a
		return &c, false, nil
	}

	points := make(map[uuid.UUID]int)
	for _, q := range f.db.exams[a.ExamID].Questions {
		points[q.ID] = q.Points
	}
	var scored []model.ScoredResponse
	for _, r := range f.db.responses[id] {
		scored = append(scored, model.ScoredResponse{QuestionID: r.QuestionID, IsCorrect: r.IsCorrect, Points: points[r.QuestionID]})
	}

	total := score(scored)
	a.Status = model.AttemptStatusCompleted
	a.SubmittedAt = &submittedAt
	a.Score = &total
	f.db.transitions++
	c := *a
	return &c, true, nil
}

func (f fakeAttempts) Delete(_ context.Context, id uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.attempts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.responses, id)
	delete(f.db.attempts, id)
	return nil
}

func (f fakeAttempts) ListResponses(_ context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Response{}
	for _, r := range f.db.responses[attemptID] {
		out = append(out, r)
	}
	return out, nil
}

func (f fakeAttempts) ListByExam(_ context.Context, examID uuid.UUID) ([]model.AttemptOverview, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.AttemptOverview{}
	for _, a := range f.db.attempts {
		if a.ExamID == examID {
			out = append(out, model.AttemptOverview{Attempt: *a, Answered: len(f.db.responses[a.ID])})
		}
	}
	return out, nil
}

type fakeLateCodes struct{ db *memDB }

func (f fakeLateCodes) Create(_ context.Context, lc *model.LateCode) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.lateCodes {
		if existing.ExamID == lc.ExamID && existing.Code == lc.Code {
			return repository.ErrDuplicate
		}
	}
	lc.ID = uuid.New()
	lc.CreatedAt = time.Now()
	c := *lc
	f.db.lateCodes = append(f.db.lateCodes, &c)
	return nil
}

func (f fakeLateCodes) ListByExam(_ context.Context, examID uuid.UUID) ([]model.LateCode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.LateCode{}
	for _, lc := range f.db.lateCodes {
		if lc.ExamID == examID {
			out = append(out, *lc)
		}
	}
	return out, nil
}

type fakeUsers struct{ db *memDB }

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) Create(_ context.Context, u *model.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[u.Email]; ok {
		return repository.ErrDuplicate
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	c := *u
	f.db.users[u.Email] = &c
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	payloads    map[uuid.UUID]*model.ExamPayload
	hits        int
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{payloads: make(map[uuid.UUID]*model.ExamPayload)}
}

func (c *fakeCache) Get(_ context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.payloads[examID]
	if !ok {
		return nil, nil
	}
	c.hits++
	return p, nil
}

func (c *fakeCache) Set(_ context.Context, payload *model.ExamPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads[payload.ExamID] = payload
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, examID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.payloads, examID)
	c.invalidated = append(c.invalidated, examID)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.AttemptEvent
}

func (f *fakeEvents) Publish(_ context.Context, e model.AttemptEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeEvents) count(t model.AttemptEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// testEnv wires every service to the fakes with a controllable clock.
type testEnv struct {
	db      *memDB
	cache   *fakeCache
	events  *fakeEvents
	now     time.Time
	grace   time.Duration
	scoring *ScoringService
	attempt *AttemptService
	answer  *AnswerService
	exam    *ExamService
	auth    *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:     newMemDB(),
		cache:  newFakeCache(),
		events: &fakeEvents{},
		now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		grace:  15 * time.Second,
	}
	clock := func() time.Time { return env.now }
	log := zerolog.Nop()

	exams := fakeExams{env.db}
	attempts := fakeAttempts{env.db}
	lateCodes := fakeLateCodes{env.db}

	env.scoring = NewScoringService(attempts, env.events, log)
	env.scoring.now = clock
	env.attempt = NewAttemptService(exams, attempts, lateCodes, env.cache, env.scoring, env.events, env.grace, log)
	env.attempt.now = clock
	env.answer = NewAnswerService(env.attempt, exams, attempts, env.events, log)
	env.exam = NewExamService(exams, lateCodes, env.cache, log)
	env.exam.now = clock

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	env.auth = NewAuthService(cfg, fakeUsers{env.db}, log)
	env.auth.now = clock
	return env
}

// seedExam stores an exam with three questions worth 1, 2 and 3 points.
// In each question the first option is correct. The exam window is
// [now-1h, now+1h) and attempts last 30 minutes.
func (e *testEnv) seedExam(t *testing.T, mode model.CloseMode) *model.Exam {
	t.Helper()

	exam := &model.Exam{
		Title:           "Physics Midterm",
		StartTime:       e.now.Add(-time.Hour),
		EndTime:         e.now.Add(time.Hour),
		DurationMinutes: 30,
		CloseMode:       mode,
		TeacherID:       uuid.New(),
	}
	for i, pts := range []int{1, 2, 3} {
		exam.Questions = append(exam.Questions, model.Question{
			Text:   "Question " + string(rune('A'+i)),
			Points: pts,
			Options: []model.Option{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		})
	}
	if err := (fakeExams{e.db}).Create(context.Background(), exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	return exam
}

func (e *testEnv) addLateCode(t *testing.T, examID uuid.UUID, code string) {
	t.Helper()
	if err := (fakeLateCodes{e.db}).Create(context.Background(), &model.LateCode{ExamID: examID, Code: code}); err != nil {
		t.Fatalf("seed late code: %v", err)
	}
}

func (e *testEnv) start(t *testing.T, exam *model.Exam, studentID uuid.UUID) *model.Attempt {
	t.Helper()
	a, err := e.attempt.StartAttempt(context.Background(), exam.ID, studentID, "")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return a
}

func (e *testEnv) choose(t *testing.T, a *model.Attempt, q model.Question, optionIdx int) {
	t.Helper()
	if err := e.record(a, q, q.Options[optionIdx].ID); err != nil {
		t.Fatalf("record answer: %v", err)
	}
}

func (e *testEnv) record(a *model.Attempt, q model.Question, optionID uuid.UUID) error {
	return e.answer.RecordAnswer(context.Background(), a.ID, a.StudentID, q.ID, optionID)
}
