// Package version хранит сборочную информацию бинарей minimarket.
package version

import "fmt"

// Заполняются при сборке:
//
//	go build -ldflags "-X .../internal/version.version=v1.2.3 \
//	  -X .../internal/version.commit=$(git rev-parse --short HEAD) \
//	  -X .../internal/version.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String возвращает сборочную информацию одной строкой,
// её отдают health-ручки.
func String() string {
	return fmt.Sprintf("minimarket %s (commit=%s date=%s)", version, commit, date)
}
