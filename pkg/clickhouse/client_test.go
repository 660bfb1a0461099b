package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "finbrief",
		User:         "default",
		Password:     "secret",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	if !strings.HasPrefix(dsn, "clickhouse://default:secret@ch:9000/finbrief?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	for _, want := range []string{"dial_timeout=5s", "max_execution_time=30", "async_insert=1", "wait_for_async_insert=1"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %s missing %s", dsn, want)
		}
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := BuildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	if !strings.HasPrefix(dsn, "http://u:@ch:8123/db") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
}
