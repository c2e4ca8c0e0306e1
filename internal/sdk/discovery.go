package sdk

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
)

const (
	// ProductName is the product name reported by supported servers
	ProductName = "Jellyfin Server"
	// MinimumVersion is the oldest supported server version
	MinimumVersion = "10.8.0"
	// RecommendedVersion is the oldest version without an outdated warning
	RecommendedVersion = "10.9.0"

	// HTTPPort and HTTPSPort are the default server ports
	HTTPPort  = 8096
	HTTPSPort = 8920

	slowResponse = 3 * time.Second
	probeLimit   = 6
)

// ErrNoServerFound is returned when no candidate is usable
var ErrNoServerFound = errors.New("no usable server found")

// Score ranks a discovered candidate, higher is better
type Score int

const (
	ScoreBad Score = iota
	ScoreOk
	ScoreGood
	ScoreGreat
)

func (s Score) String() string {
	switch s {
	case ScoreGreat:
		return "great"
	case ScoreGood:
		return "good"
	case ScoreOk:
		return "ok"
	default:
		return "bad"
	}
}

// Issue describes why a candidate was downgraded
type Issue string

const (
	IssueInsecureConnection Issue = "insecure-connection"
	IssueSlowConnection     Issue = "slow-connection"
	IssueOutdatedVersion    Issue = "outdated-server-version"
	IssueUnsupportedVersion Issue = "unsupported-server-version"
	IssueInvalidProductName Issue = "invalid-product-name"
	IssueMissingVersion     Issue = "missing-server-version"
	IssueSystemInfoError    Issue = "system-info-error"
)

// RecommendedServer is a scored discovery candidate
type RecommendedServer struct {
	Address      string
	ResponseTime time.Duration
	Score        Score
	Issues       []Issue
	SystemInfo   *PublicSystemInfo
	Err          error
}

// Discovery finds servers from user input
type Discovery struct {
	sdk    *SDK
	client *httpclient.Client
	logger *zap.Logger
}

func newDiscovery(s *SDK, timeout time.Duration) *Discovery {
	return &Discovery{
		sdk:    s,
		client: httpclient.NewClient(httpclient.Defaults{Timeout: timeout}, s.logger),
		logger: s.logger.Named("discovery"),
	}
}

// AddressCandidates expands user input into the addresses worth probing.
// Input without a scheme is tried over https and http; input without a port
// is tried as given and on the default port of each scheme.
func (d *Discovery) AddressCandidates(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAddress)
	}

	schemes := []string{"https", "http"}
	if i := strings.Index(input, "://"); i >= 0 {
		scheme := strings.ToLower(input[:i])
		if scheme != "http" && scheme != "https" {
			return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidAddress, input)
		}
		schemes = []string{scheme}
		input = input[i+3:]
	}

	u, err := url.Parse("http://" + input)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, input)
	}
	path := strings.TrimRight(u.Path, "/")

	var candidates []string
	seen := map[string]bool{}
	add := func(scheme, host string) {
		c := scheme + "://" + host + path
		if !seen[c] {
			seen[c] = true
			candidates = append(candidates, c)
		}
	}

	for _, scheme := range schemes {
		if u.Port() != "" {
			add(scheme, u.Host)
			continue
		}
		add(scheme, u.Host)
		port := HTTPPort
		if scheme == "https" {
			port = HTTPSPort
		}
		add(scheme, net.JoinHostPort(u.Hostname(), strconv.Itoa(port)))
	}
	return candidates, nil
}

// GetRecommendedServerCandidates probes every candidate for input
// concurrently and returns them best first.
func (d *Discovery) GetRecommendedServerCandidates(ctx context.Context, input string) ([]RecommendedServer, error) {
	candidates, err := d.AddressCandidates(input)
	if err != nil {
		return nil, err
	}

	results := make([]RecommendedServer, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeLimit)
	for i, address := range candidates {
		i, address := i, address
		g.Go(func() error {
			results[i] = d.probe(gctx, address)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(results, func(a, b RecommendedServer) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.ResponseTime, b.ResponseTime)
	})

	d.logger.Debug("discovery finished", zap.String("input", input), zap.Int("candidates", len(results)))
	return results, nil
}

// FindBestServer returns the best usable candidate for input
func (d *Discovery) FindBestServer(ctx context.Context, input string) (*RecommendedServer, error) {
	results, err := d.GetRecommendedServerCandidates(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].Score == ScoreBad {
		return nil, ErrNoServerFound
	}
	return &results[0], nil
}

func (d *Discovery) probe(ctx context.Context, address string) RecommendedServer {
	result := RecommendedServer{Address: address}

	api, err := d.sdk.CreateAPI(address, "", d.client)
	if err != nil {
		result.Err = err
		result.Issues = []Issue{IssueSystemInfoError}
		return result
	}

	start := time.Now()
	info, err := api.GetPublicSystemInfo(ctx)
	result.ResponseTime = time.Since(start)
	if err != nil {
		d.logger.Debug("probe failed", zap.String("address", address), zap.Error(err))
		result.Err = err
		result.Issues = []Issue{IssueSystemInfoError}
		return result
	}

	result.SystemInfo = info
	result.Score, result.Issues = scoreServer(address, info, result.ResponseTime)
	return result
}

func scoreServer(address string, info *PublicSystemInfo, elapsed time.Duration) (Score, []Issue) {
	var issues []Issue
	score := ScoreGreat

	if info.ProductName != "" && info.ProductName != ProductName {
		return ScoreBad, []Issue{IssueInvalidProductName}
	}
	if info.Version == "" {
		return ScoreBad, []Issue{IssueMissingVersion}
	}
	if compareVersions(info.Version, MinimumVersion) < 0 {
		return ScoreBad, []Issue{IssueUnsupportedVersion}
	}

	if compareVersions(info.Version, RecommendedVersion) < 0 {
		issues = append(issues, IssueOutdatedVersion)
		score = min(score, ScoreGood)
	}
	if strings.HasPrefix(address, "http://") {
		issues = append(issues, IssueInsecureConnection)
		score = min(score, ScoreGood)
	}
	if elapsed > slowResponse {
		issues = append(issues, IssueSlowConnection)
		score = min(score, ScoreOk)
	}
	return score, issues
}

// compareVersions compares dotted numeric versions; missing or non-numeric
// components count as zero.
func compareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}
