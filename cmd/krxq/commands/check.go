package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/pkg/database"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정/연결 상태 점검",
	Long: `설정을 읽고 각 의존성의 연결 상태를 점검합니다.

이 명령어는:
- 설정 요약 출력
- Redis 연결 확인 (REDIS_ENABLED=true 인 경우)
- PostgreSQL 연결 및 커넥션 풀 상태 확인 (DATABASE_URL 이 있는 경우)
- KRX 포털에서 최근 영업일 조회`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	PrintDoubleSeparator()
	fmt.Println("  krxq check")
	PrintSeparator()
	PrintKeyValue("ENV", a.cfg.Env, 12)
	PrintKeyValue("KRX", a.cfg.KRX.BaseURL, 12)
	PrintKeyValue("Naver", a.cfg.Naver.BaseURL, 12)
	PrintKeyValue("Database", maskPassword(a.cfg.Database.URL), 12)
	PrintKeyValue("Redis", fmt.Sprintf("%s:%s (enabled=%v)", a.cfg.Redis.Host, a.cfg.Redis.Port, a.redis.Enabled()), 12)
	PrintSeparator()

	failed := 0

	if a.redis.Enabled() {
		if err := a.redis.Redis().Ping(ctx).Err(); err != nil {
			failed++
			PrintWarning("Redis ping failed: " + err.Error())
		} else {
			PrintSuccess("Redis ping successful")
		}
	}

	if a.cfg.Database.URL != "" {
		if err := checkDatabase(ctx, a); err != nil {
			failed++
			PrintWarning(err.Error())
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*a.cfg.HTTP.Timeout)
	defer cancel()
	day, err := a.service.NearestBusinessDay(probeCtx)
	if err != nil {
		failed++
		PrintWarning("KRX probe failed: " + err.Error())
	} else {
		PrintSuccess("KRX reachable, nearest business day " + day)
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	fmt.Println("\n✅ All checks passed!")
	return nil
}

func checkDatabase(ctx context.Context, a *app) error {
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	PrintSuccess("Database connection established")
	PrintKeyValue("Response", status.ResponseTime.String(), 12)
	PrintKeyValue("Conns", fmt.Sprintf("total=%d acquired=%d idle=%d", status.TotalConns, status.AcquiredConns, status.IdleConns), 12)
	PrintKeyValue("Checked", status.Timestamp.Format(time.RFC3339), 12)
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
