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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/auth"
	"classtrack/internal/cache"
	"classtrack/internal/config"
	"classtrack/internal/domain"
	"classtrack/internal/httpmiddleware"
	"classtrack/internal/logger"
	"classtrack/internal/queue"
	"classtrack/internal/remote"
	"classtrack/internal/tracker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		logger.Log.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	log := logger.WithComponent("api")
	ctx := context.Background()

	session := auth.NewTokenSession(cfg.JWTSigningKey, cfg.JWTIssuer)
	rc := remote.New(cfg.RemoteBaseURL, session)

	var (
		snapshots cache.Store
		redisC    *cache.Redis
	)
	switch cfg.CacheBackend {
	case "memory":
		snapshots = cache.NewMemory()
	case "postgres":
		pg, err := cache.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		snapshots = pg
	default:
		redisC = cache.NewRedis(cfg.RedisAddr, "classtrack")
		if !redisC.Healthy(ctx) {
			log.Warn("redis not reachable, snapshots will fail until it returns")
		}
		snapshots = redisC
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" || redisC == nil {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisC.Client(), "classtrack:queue")
	}

	store := tracker.New(tracker.Options{
		Cache:   snapshots,
		Session: session,
		Gateway: tracker.Gateway{
			Subjects: rc.Subjects(),
			Slots:    rc.Slots(),
			Records:  rc.Records(),
		},
	})
	if err := store.Load(ctx); err != nil {
		log.WithError(err).Warn("initial load incomplete")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	// One limiter for the whole surface: session routes are keyed by IP
	// (no identity yet), everything under the auth group by user.
	limiter := httpmiddleware.NewUserRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		cacheHealthy := true
		if redisC != nil {
			cacheHealthy = redisC.Healthy(c.Request.Context())
		}
		if !cacheHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "cache": cacheHealthy, "syncing": store.Syncing()})
	})

	r.POST("/v1/session/login", limiter.GinMiddleware(), func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(req.UserID, "user", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		if err := session.SetToken(tokens.AccessToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session install failed"})
			return
		}

		// Guest data is gone from here on even if the first sync fails.
		if err := store.OnUserLogin(c.Request.Context()); err != nil {
			log.WithError(err).Warn("post-login sync failed")
		}
		if err := q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeSyncRequested, Body: []byte(req.UserID)}); err != nil {
			log.WithError(err).Warn("queue publish failed")
		}

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/session/refresh", limiter.GinMiddleware(), func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		tokens, err := auth.Issue(claims.Subject, claims.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		if err := session.SetToken(tokens.AccessToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session install failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	v1 := r.Group("/v1")
	if !cfg.GuestMode {
		// Guest deployments serve a single local user and skip bearer checks.
		v1.Use(auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	}
	v1.Use(limiter.GinMiddleware())

	v1.GET("/me", func(c *gin.Context) {
		resp := gin.H{
			"authenticated": session.Authenticated(),
			"ready":         session.Ready(),
			"syncing":       store.Syncing(),
		}
		if claims, ok := auth.ClaimsFrom(c); ok {
			resp["user_id"] = claims.Subject
			resp["role"] = claims.Role
			if claims.ExpiresAt != nil {
				resp["token_expires_at"] = claims.ExpiresAt.Unix()
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	v1.POST("/session/logout", func(c *gin.Context) {
		log.WithField("user", c.GetString(auth.CtxUserID)).Info("session cleared")
		session.Clear()
		c.Status(http.StatusNoContent)
	})

	v1.POST("/sync", func(c *gin.Context) {
		if err := store.SyncWithRemote(c.Request.Context()); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": store.Subjects()})
	})

	v1.GET("/subjects", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subjects": store.Subjects()})
	})

	v1.POST("/subjects", func(c *gin.Context) {
		var req struct {
			Subject domain.Subject       `json:"subject" binding:"required"`
			Slots   []domain.LectureSlot `json:"lecture_slots"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if len(req.Slots) == 0 {
			subject, err := store.AddSubject(c.Request.Context(), req.Subject)
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"subject": subject})
			return
		}

		subject, slots, err := store.AddSubjectWithSlots(c.Request.Context(), req.Subject, req.Slots)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"subject": subject, "lecture_slots": slots})
	})

	v1.PATCH("/subjects/:id", func(c *gin.Context) {
		var subject domain.Subject
		if err := c.ShouldBindJSON(&subject); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		subject.ID = domain.ParseID(c.Param("id"))
		if err := store.UpdateSubject(c.Request.Context(), subject); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})

	v1.DELETE("/subjects/:id", func(c *gin.Context) {
		if err := store.DeleteSubject(c.Request.Context(), domain.ParseID(c.Param("id"))); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	v1.GET("/lecture-slots", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"lecture_slots": store.Slots()})
	})

	v1.PUT("/subjects/:id/lecture-slots", func(c *gin.Context) {
		var req struct {
			Slots []domain.LectureSlot `json:"lecture_slots"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slots, err := store.UpdateLectureSlots(c.Request.Context(), domain.ParseID(c.Param("id")), req.Slots)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lecture_slots": slots})
	})

	v1.GET("/attendance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"attendance_records": store.Records()})
	})

	v1.POST("/attendance", func(c *gin.Context) {
		var req struct {
			SubjectID     string        `json:"subject_id" binding:"required"`
			LectureSlotID string        `json:"lecture_slot_id"`
			Date          string        `json:"date" binding:"required"`
			Status        domain.Status `json:"status" binding:"required"`
			HoursLogged   int           `json:"hours_logged"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := store.MarkAttendance(c.Request.Context(), tracker.MarkParams{
			SubjectID:     domain.ParseID(req.SubjectID),
			LectureSlotID: domain.ParseID(req.LectureSlotID),
			Date:          req.Date,
			Status:        req.Status,
			HoursLogged:   req.HoursLogged,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance_record": rec})
	})

	v1.POST("/attendance/duty-leave", func(c *gin.Context) {
		var req struct {
			SubjectID string `json:"subject_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
			Reason    string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := store.RequestDutyLeave(c.Request.Context(), domain.ParseID(req.SubjectID), req.Date, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance_record": rec})
	})

	v1.POST("/attendance/duty-leave/approve", func(c *gin.Context) {
		var req struct {
			SubjectID string `json:"subject_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := store.ApproveDutyLeave(c.Request.Context(), domain.ParseID(req.SubjectID), req.Date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance_record": rec})
	})

	v1.POST("/attendance/duty-leave/cancel", func(c *gin.Context) {
		var req struct {
			SubjectID string `json:"subject_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := store.CancelDutyRequest(c.Request.Context(), domain.ParseID(req.SubjectID), req.Date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance_record": rec})
	})

	v1.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Stats())
	})

	v1.GET("/subjects/:id/stats", func(c *gin.Context) {
		data, err := store.SubjectData(domain.ParseID(c.Param("id")))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, data)
	})

	v1.GET("/subjects/:id/advice", func(c *gin.Context) {
		classesPerWeek := 0
		if v := c.Query("classes_per_week"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				classesPerWeek = parsed
			}
		}
		advice, err := store.AdviceFor(domain.ParseID(c.Param("id")), classesPerWeek)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, advice)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}

	log.Info("server exited")
	return nil
}

// respondErr maps core errors to HTTP statuses: unknown entities are 404,
// failed remote writes are 502 with a user-facing message, everything else
// is a validation-style 400.
func respondErr(c *gin.Context, err error) {
	var remoteErr *tracker.RemoteWriteError
	switch {
	case errors.Is(err, tracker.ErrSubjectNotFound), errors.Is(err, tracker.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": remoteErr.UserMessage()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
