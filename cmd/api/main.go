package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-engine-go/internal/handler/http"
	auditPkg "github.com/cmlabs-hris/attendance-engine-go/internal/pkg/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
	leaveService "github.com/cmlabs-hris/attendance-engine-go/internal/service/leave"
	notificationService "github.com/cmlabs-hris/attendance-engine-go/internal/service/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.Connect(context.Background(), cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	civilClock, err := clock.New(cfg.Attendance.Timezone)
	if err != nil {
		fmt.Println("Error loading timezone:", err)
		return
	}

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	settingsRepo := postgresql.NewSettingsRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	txManager := postgresql.NewTxManager(db)

	hub := sse.NewHub()
	auditSink := auditPkg.NewSlogSink(nil)
	jwtService := jwt.NewJWTService(cfg.JWT.Secret)
	notifier := notificationService.NewService(notificationRepo, employeeRepo, hub, notificationService.Config{})

	graceProvider := graceperiod.NewProvider(settingsRepo, cfg.Attendance.GraceCacheTTL, cfg.Attendance.GraceDefault)
	resolver := attendanceService.NewResolver(civilClock)
	attendanceSvc := attendanceService.NewService(attendanceRepo, employeeRepo, resolver, graceProvider, civilClock, auditSink, notifier, hub)

	policyValidator := leaveService.NewPolicyValidator(civilClock, holidayRepo, leaveRequestRepo, auditSink)
	ledger := leaveService.NewLedger(balanceRepo)
	syncService := leaveService.NewSyncService(
		txManager,
		leaveRequestRepo,
		attendanceRepo,
		employeeRepo,
		ledger,
		policyValidator,
		resolver,
		graceProvider,
		civilClock,
		auditSink,
		notifier,
		hub,
	)

	dailyJob := attendanceService.NewDailyJob(attendanceRepo, employeeRepo, holidayRepo, resolver, graceProvider, civilClock)
	scheduler := cron.NewScheduler(civilClock.Location())
	scheduler.AddDailyJob("attendance-daily-sweep", cfg.Attendance.AbsentMarkingHour, dailyJob.Run)
	scheduler.Start()
	defer scheduler.Stop()
	defer notifier.Stop()

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	leaveHandler := appHTTP.NewLeaveHandler(syncService, civilClock)
	settingsHandler := appHTTP.NewSettingsHandler(settingsRepo, graceProvider)
	notificationHandler := appHTTP.NewNotificationHandler(notificationRepo, hub, jwtService)

	router := appHTTP.NewRouter(
		jwtService,
		attendanceHandler,
		leaveHandler,
		settingsHandler,
		notificationHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
