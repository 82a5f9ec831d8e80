package api

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// publicRoutes are reachable without a bearer token.
var publicRoutes = []string{
	`authRouter.MethodFunc("POST", "/register",`,
	`authRouter.MethodFunc("POST", "/login",`,
	`departmentsRouter.MethodFunc("GET", "/",`,
	`rolesRouter.MethodFunc("GET", "/",`,
}

func TestRoutegroupsRequireSessionGuards(t *testing.T) {
	root := projectRoot(t)
	dir := filepath.Join(root, "api", "routegroups")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read routegroups dir: %v", err)
	}
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		for i, line := range readLines(t, path) {
			if !strings.Contains(line, ".MethodFunc(") {
				continue
			}
			found++
			if strings.Contains(line, "g.SessionPerm(") || strings.Contains(line, "g.Session(") {
				continue
			}
			if strings.Contains(line, "g.Public(") && isPublicRoute(line) {
				continue
			}
			t.Fatalf("unguarded routegroup handler in %s:%d -> %s", path, i+1, strings.TrimSpace(line))
		}
	}
	if found == 0 {
		t.Fatalf("no routes found in %s", dir)
	}
}

func TestLoginRouteIsRateLimited(t *testing.T) {
	path := filepath.Join(projectRoot(t), "api", "routegroups", "directory.go")
	for _, line := range readLines(t, path) {
		if strings.Contains(line, `"/login"`) {
			if !strings.Contains(line, "g.Limited(") {
				t.Fatalf("login route is not rate limited: %s", strings.TrimSpace(line))
			}
			return
		}
	}
	t.Fatalf("login route not found in %s", path)
}

func isPublicRoute(line string) bool {
	for _, prefix := range publicRoutes {
		if strings.Contains(line, prefix) {
			return true
		}
	}
	return false
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), ".."))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}
