package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"attendtrack/internal/alert"
	"attendtrack/internal/auth"
	"attendtrack/internal/compliance"
	"attendtrack/internal/config"
	"attendtrack/internal/directory"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/ledger"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/store"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App, logger *logrus.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	policy := windowPolicy(cfg)

	ledgerRepo := ledger.NewRepository(db.Client)
	alertRepo := alert.NewRepository(db.Client)
	dir := directory.NewRepository(db.Client)
	agg := compliance.NewAggregator(ledgerRepo)

	emailer := notify.NewEmailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, logger)
	dispatcher := alert.NewDispatcher(alertRepo, emailer, alertRepo)
	orch := alert.NewOrchestrator(dir, agg, dispatcher, cfg.ThresholdPercent, logger)
	trigger := alert.NewTrigger(orch, policy, logger)
	svc := ledger.NewService(ledgerRepo, trigger, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Service-token mint for the surrounding application. Real login and
	// session handling live outside this service.
	r.POST("/v1/auth/token", func(c *gin.Context) {
		if c.GetHeader("X-Service-Key") != cfg.ServiceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad service key"})
			return
		}
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Role   string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, exp, err := auth.Issue(req.UserID, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
	})

	authGroup := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	staff := authGroup.Group("", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin))

	staff.POST("/courses/:id/attendance", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
			Status    string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		ident := auth.FromContext(c)
		if err := svc.RecordAttendance(c.Request.Context(), ident, req.StudentID, c.Param("id"), day, ledger.Status(req.Status)); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"recorded": true})
	})

	staff.POST("/courses/:id/attendance/batch", func(c *gin.Context) {
		var req struct {
			Date  string          `json:"date" binding:"required"`
			Marks map[string]bool `json:"marks" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		ident := auth.FromContext(c)
		if err := svc.RecordBatch(c.Request.Context(), ident, c.Param("id"), day, req.Marks); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"recorded": len(req.Marks)})
	})

	authGroup.GET("/courses/:id/students/:student_id/records", func(c *gin.Context) {
		w, err := windowFromQuery(c, policy)
		if err != nil {
			respondErr(c, err)
			return
		}
		recs, err := svc.RecordsForWindow(c.Request.Context(), c.Param("student_id"), c.Param("id"), w)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"window": w, "records": recs})
	})

	authGroup.GET("/courses/:id/students/:student_id/snapshot", func(c *gin.Context) {
		w, err := windowFromQuery(c, policy)
		if err != nil {
			respondErr(c, err)
			return
		}
		snap, err := agg.Snapshot(c.Request.Context(), c.Param("student_id"), c.Param("id"), w)
		if err != nil {
			respondErr(c, err)
			return
		}
		resp := gin.H{"snapshot": snap, "has_data": snap.HasData()}
		if snap.HasData() {
			resp["percentage"] = snap.Percentage()
		}
		c.JSON(http.StatusOK, resp)
	})

	authGroup.GET("/courses/:id/summary", func(c *gin.Context) {
		w, err := windowFromQuery(c, policy)
		if err != nil {
			respondErr(c, err)
			return
		}
		sum, err := agg.CourseSummary(c.Request.Context(), c.Param("id"), w)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	})

	staff.POST("/courses/:id/alert-runs", func(c *gin.Context) {
		var req struct {
			Start string `json:"start"`
			End   string `json:"end"`
			Async bool   `json:"async"`
		}
		// Body is optional; an empty body means the policy window.
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		courseID := c.Param("id")
		ident := auth.FromContext(c)

		if req.Async {
			msg, err := queue.NewAlertRun(queue.RunRequest{
				CourseID:    courseID,
				RequestedBy: ident.UserID,
				RequestedAt: time.Now().UTC(),
			})
			if err == nil {
				err = q.Publish(c.Request.Context(), msg)
			}
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"queued": true})
			return
		}

		w, err := windowFromStrings(req.Start, req.End, policy)
		if err != nil {
			respondErr(c, err)
			return
		}
		sum, err := orch.Run(c.Request.Context(), courseID, w)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"window": w, "summary": sum})
	})

	authGroup.GET("/notifications", func(c *gin.Context) {
		limit := 10
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		ident := auth.FromContext(c)
		notifications, err := alertRepo.Notifications(c.Request.Context(), ident.UserID, limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	})

	authGroup.POST("/notifications/:id/read", func(c *gin.Context) {
		ident := auth.FromContext(c)
		ok, err := alertRepo.MarkNotificationRead(c.Request.Context(), c.Param("id"), ident.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"read": true})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server forced shutdown")
	}

	logger.Info("server exited")
	return nil
}

func windowPolicy(cfg config.App) ledger.WindowPolicy {
	policy := ledger.WindowPolicy{
		Mode:         cfg.WindowMode,
		TrailingDays: cfg.TrailingDays,
	}
	if cfg.WindowMode == ledger.WindowModeFixed {
		if start, err := time.Parse("2006-01-02", cfg.WindowStart); err == nil {
			policy.Start = start
		}
		if end, err := time.Parse("2006-01-02", cfg.WindowEnd); err == nil {
			policy.End = end
		}
	}
	return policy
}

func windowFromQuery(c *gin.Context, policy ledger.WindowPolicy) (ledger.Window, error) {
	return windowFromStrings(c.Query("start"), c.Query("end"), policy)
}

func windowFromStrings(start, end string, policy ledger.WindowPolicy) (ledger.Window, error) {
	if start == "" && end == "" {
		return policy.Current(time.Now()), nil
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return ledger.Window{}, &ledger.ValidationError{Field: "start", Reason: "must be YYYY-MM-DD"}
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return ledger.Window{}, &ledger.ValidationError{Field: "end", Reason: "must be YYYY-MM-DD"}
	}
	return ledger.NewWindow(s, e)
}

func respondErr(c *gin.Context, err error) {
	var ve *ledger.ValidationError
	var nf *directory.NotFoundError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
