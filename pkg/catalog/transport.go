package catalog

import "regexp"

// SocketOp is a socket operation kind
type SocketOp string

const (
	SocketConnect SocketOp = "connect"
	SocketRead    SocketOp = "read"
	SocketWrite   SocketOp = "write"
)

// SocketOps lists the operations in the order their remediation snippets compose
func SocketOps() []SocketOp {
	return []SocketOp{SocketConnect, SocketRead, SocketWrite}
}

// Rewrite is a line-local substitution applied when any of its triggering
// operations was detected
type Rewrite struct {
	Name        string
	When        []SocketOp
	Pattern     *regexp.Regexp
	Replacement string
}

// Triggered reports whether any triggering operation is active
func (r Rewrite) Triggered(active map[SocketOp]bool) bool {
	for _, op := range r.When {
		if active[op] {
			return true
		}
	}
	return false
}

func builtinTransportDetectors() []Detector {
	return []Detector{
		{
			Name:     "socket-connect",
			Category: CategoryTransportChannel,
			SubKind:  string(SocketConnect),
			Matcher:  Regex(`\bsocket\.connect\b|\bnew\s+Socket\s*\(`),
		},
		{
			Name:     "socket-read",
			Category: CategoryTransportChannel,
			SubKind:  string(SocketRead),
			Matcher:  Regex(`\bgetInputStream\b`),
		},
		{
			Name:     "socket-write",
			Category: CategoryTransportChannel,
			SubKind:  string(SocketWrite),
			Matcher:  Regex(`\bgetOutputStream\b`),
		},
	}
}

func builtinRewrites() []Rewrite {
	return []Rewrite{
		{
			Name:        "secure-socket-construction",
			When:        []SocketOp{SocketConnect},
			Pattern:     regexp.MustCompile(`\bnew Socket\((.*?)\)`),
			Replacement: "sslSocketFactory.createSocket(${1})",
		},
		{
			Name:        "secure-socket-streams",
			When:        []SocketOp{SocketRead, SocketWrite},
			Pattern:     regexp.MustCompile(`\bsocket\.(getInputStream|getOutputStream)\(\)`),
			Replacement: "sslSocket.${1}()",
		},
	}
}

func builtinSocketTokens() []string {
	return []string{"socket.", "new Socket", "getInputStream", "getOutputStream"}
}
