package retry

import (
	"database/sql/driver"
	"errors"
	"net"
	"slices"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
)

// Classifier reports whether err is temporary.
type Classifier func(err error) bool

// SQLSTATE classes where a new attempt can succeed: connection exception,
// insufficient resources, operator intervention.
var transientClasses = []string{"08", "53", "57"}

var transientStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// SQL Server error numbers worth another attempt.
var transientMSSQL = map[int32]bool{
	-2:    true, // client timeout
	233:   true, // no process on the other end of the pipe
	1205:  true, // deadlock victim
	4060:  true, // cannot open database, failover in progress
	10053: true, // transport-level error
	10054: true, // connection reset
	10060: true, // connection timed out
	10928: true, // resource limit
	10929: true, // resource governor
	40197: true, // service error
	40501: true, // service busy
	40613: true, // database unavailable
	49918: true,
	49919: true,
	49920: true,
}

var transientErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.EPIPE,
}

// Drivers do not always keep the underlying error in the chain.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"bad connection",
	"login timeout",
}

// Target classifies errors from the frePPLe PostgreSQL database (pgx).
func Target(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientState(pgErr.Code)
	}
	return transientNetwork(err)
}

// Source classifies errors from the ERP drivers: SQL Server, PostgreSQL
// through lib/pq, and SQLite.
func Source(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return transientMSSQL[msErr.SQLErrorNumber()]
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientState(string(pqErr.Code))
	}
	return transientNetwork(err)
}

func transientState(code string) bool {
	if len(code) == 5 && slices.Contains(transientClasses, code[:2]) {
		return true
	}
	return transientStates[code]
}

func transientNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
