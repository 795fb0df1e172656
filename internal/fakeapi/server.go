// Package fakeapi is an in-memory stand-in for the billing API. It backs the
// sandbox binary and end-to-end tests of the client and the resolution workflow.
package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/session"
	"go.uber.org/zap"
)

const sessionCookie = "session"

// Account is a sandbox login
type Account struct {
	Password string
	User     domain.User
}

// Options configures the sandbox
type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
	// RequireAuth rejects unauthenticated calls to the workflow endpoints.
	RequireAuth bool
}

// Server holds the sandbox state
type Server struct {
	opts Options

	mu          sync.Mutex
	accounts    map[string]Account
	readings    map[int64]*domain.Reading
	resolved    map[int64]string
	users       []domain.User
	types       []domain.TaskType
	tasks       []domain.Task
	corrections map[int64][]apiclient.CorrectionRequest
	bills       []apiclient.AverageBillRequest
	sessions    map[string]domain.User
}

// New creates a sandbox seeded with Seed()
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("sandbox-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 8 * time.Hour
	}
	s := &Server{
		opts:        opts,
		accounts:    map[string]Account{},
		readings:    map[int64]*domain.Reading{},
		resolved:    map[int64]string{},
		corrections: map[int64][]apiclient.CorrectionRequest{},
		sessions:    map[string]domain.User{},
	}
	Seed(s)
	return s
}

// AddAccount registers a login
func (s *Server) AddAccount(email string, a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(email)] = a
}

// AddReading registers an abnormal reading
func (s *Server) AddReading(r domain.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.ID] = &r
	delete(s.resolved, r.ID)
}

// SetOptions replaces the user and task type lists
func (s *Server) SetOptions(users []domain.User, types []domain.TaskType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.types = types
}

// Tasks returns the tasks created so far
func (s *Server) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks...)
}

// Bills returns the average bills issued so far
func (s *Server) Bills() []apiclient.AverageBillRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apiclient.AverageBillRequest(nil), s.bills...)
}

// Corrections returns the corrections applied to a reading
func (s *Server) Corrections(readingID int64) []apiclient.CorrectionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apiclient.CorrectionRequest(nil), s.corrections[readingID]...)
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.POST("/login", s.login)
	r.POST("/logout", s.logout)

	api := r.Group("/")
	if s.opts.RequireAuth {
		api.Use(s.authenticate())
	}
	api.GET("/get-abnormal-reading/:id", s.getAbnormalReading)
	api.PATCH("/update-meter-reading/:id", s.updateMeterReading)
	api.POST("/bill-on-average", s.billOnAverage)
	api.GET("/get-tasks-types", s.listTaskTypes)
	api.GET("/users", s.listUsers)
	api.POST("/create-task-for-connection", s.createTask)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.opts.Logger.Info("sandbox request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			if _, err := jwt.ParseWithClaims(token, &session.Claims{}, s.keyFunc, jwt.WithTimeFunc(s.opts.Now)); err == nil {
				c.Next()
				return
			}
		}
		if sid, err := c.Cookie(sessionCookie); err == nil {
			s.mu.Lock()
			_, ok := s.sessions[sid]
			s.mu.Unlock()
			if ok {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	}
}

func (s *Server) keyFunc(*jwt.Token) (any, error) {
	return s.opts.Secret, nil
}

func (s *Server) login(c *gin.Context) {
	var req apiclient.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid login payload"})
		return
	}

	s.mu.Lock()
	account, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || account.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	now := s.opts.Now()
	claims := session.Claims{
		UserID: account.User.ID,
		Name:   account.User.Name,
		Role:   account.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.User.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token"})
		return
	}

	sid := strconv.FormatInt(now.UnixNano(), 36)
	s.mu.Lock()
	s.sessions[sid] = account.User
	s.mu.Unlock()
	c.SetCookie(sessionCookie, sid, int(s.opts.TokenTTL.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, apiclient.LoginResponse{Token: token, User: account.User})
}

func (s *Server) logout(c *gin.Context) {
	if sid, err := c.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, sid)
		s.mu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) getAbnormalReading(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	reading, found := s.readings[id]
	var out domain.Reading
	if found {
		out = *reading
	}
	s.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "Reading not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) updateMeterReading(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req apiclient.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "previousReading and currentReading must be numbers"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reading, found := s.readings[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "Reading not found"})
		return
	}
	if _, done := s.resolved[id]; done {
		c.JSON(http.StatusConflict, gin.H{"message": "Reading already resolved"})
		return
	}

	reading.PreviousReading = req.PreviousReading
	reading.CurrentReading = req.CurrentReading
	reading.Notes = req.Notes
	consumption := req.CurrentReading - req.PreviousReading
	reading.Consumption = &consumption
	reading.ExceptionType = ""
	s.resolved[id] = "corrected"
	s.corrections[id] = append(s.corrections[id], req)

	c.JSON(http.StatusOK, gin.H{"message": "Reading updated and billed"})
}

func (s *Server) billOnAverage(c *gin.Context) {
	var req apiclient.AverageBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid billing payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reading, found := s.readings[req.MeterReadingID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "Reading not found"})
		return
	}
	if id, ok := reading.ConnectionID(); !ok || id != req.ConnectionID {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Connection does not match reading"})
		return
	}
	if _, done := s.resolved[req.MeterReadingID]; done {
		c.JSON(http.StatusConflict, gin.H{"message": "Reading already resolved"})
		return
	}
	s.resolved[req.MeterReadingID] = "billed_on_average"
	s.bills = append(s.bills, req)

	c.JSON(http.StatusOK, gin.H{"message": "Billed on average"})
}

func (s *Server) listTaskTypes(c *gin.Context) {
	s.mu.Lock()
	types := append([]domain.TaskType{}, s.types...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, types)
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	users := append([]domain.User{}, s.users...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) createTask(c *gin.Context) {
	var req apiclient.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task payload"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.TypeID == 0 || req.AssignedTo == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title, task type and assignee are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.knownType(req.TypeID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Unknown task type"})
		return
	}
	due, scheduled := req.DueDate, req.ScheduledAt
	task := domain.Task{
		ID:                      int64(len(s.tasks) + 1),
		Title:                   req.Title,
		Description:             req.Description,
		TypeID:                  req.TypeID,
		Priority:                req.Priority,
		DueDate:                 &due,
		ScheduledAt:             &scheduled,
		AssignedTo:              req.AssignedTo,
		RelatedConnectionID:     req.RelatedConnectionID,
		RelatedSchemeID:         req.RelatedSchemeID,
		RelatedZoneID:           req.RelatedZoneID,
		RelatedRouteID:          req.RelatedRouteID,
		RelatedTariffCategoryID: req.RelatedTariffCategoryID,
	}
	s.tasks = append(s.tasks, task)

	c.JSON(http.StatusCreated, task)
}

func (s *Server) knownType(id int64) bool {
	for _, t := range s.types {
		if t.ID == id {
			return true
		}
	}
	return false
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid reading id"})
		return 0, false
	}
	return id, true
}
