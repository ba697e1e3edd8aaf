package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/config"
	"audit-backend/internal/db"
	"audit-backend/internal/repositories"
	"audit-backend/internal/services"
)

// auditTables lists every table the reset clears, children before parents.
var auditTables = []string{
	"login_logs",
	"totp_verification_attempts",
	"worker_efficiency",
	"counting_records",
	"counting_sessions",
	"otp_requests",
	"bin_master",
	"users",
}

func truncateStatement(tables []string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
}

func confirmed(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Type 'yes' to confirm: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Audit Database")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: this deletes every account, bin, session and record.")
	fmt.Println("The bootstrap admin is recreated afterwards.")
	fmt.Println()

	if !*yes && !confirmed(os.Stdin, os.Stdout) {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg := config.Load()
	pool := db.Connect(cfg)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := pool.Exec(ctx, truncateStatement(auditTables)); err != nil {
		log.Fatalf("Failed to truncate tables: %v", err)
	}
	for _, table := range auditTables {
		fmt.Printf("  cleared %s\n", table)
	}

	userService := services.NewUserService(repositories.NewUserRepository(pool), auth.NewJWTManager(cfg))
	if err := userService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Println()
	fmt.Println("Database reset successful.")
	fmt.Printf("Admin login: %s\n", cfg.Bootstrap.AdminEmail)
}
