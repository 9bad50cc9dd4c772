package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"statuspage/app/internal/models"
)

// Result is the outcome of one probe.
type Result struct {
	OK     bool
	Code   int
	MS     *int
	ErrMsg string
}

// blockedHosts are cloud metadata endpoints that must never be probed.
var blockedHosts = map[string]bool{
	"metadata.google.internal": true,
	"metadata":                 true,
}

func isCloudMetadataIP(ip net.IP) bool {
	return ip.Equal(net.ParseIP("169.254.169.254")) || ip.Equal(net.ParseIP("fd00:ec2::254"))
}

// ValidateURLTarget rejects URLs that point at cloud metadata services.
func ValidateURLTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}
	if blockedHosts[host] {
		return fmt.Errorf("target %q is not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil && isCloudMetadataIP(ip) {
		return fmt.Errorf("target %q is not allowed", host)
	}
	return nil
}

// Check probes svc once. URLs starting with tcp:// get a TCP dial,
// everything else an HTTP GET judged against svc's status range.
func Check(ctx context.Context, svc models.Service) Result {
	timeout := svc.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if strings.HasPrefix(svc.URL, "tcp://") {
		addr := strings.TrimPrefix(svc.URL, "tcp://")
		if err := ValidateURLTarget("tcp://" + addr); err != nil {
			return Result{ErrMsg: err.Error()}
		}
		d := net.Dialer{Timeout: timeout}
		t0 := time.Now()
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return Result{ErrMsg: err.Error()}
		}
		ms := int(time.Since(t0).Milliseconds())
		_ = conn.Close()
		return Result{OK: true, MS: &ms}
	}

	if err := ValidateURLTarget(svc.URL); err != nil {
		return Result{ErrMsg: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL, nil)
	if err != nil {
		return Result{ErrMsg: err.Error()}
	}
	req.Header.Set("User-Agent", "statuspage-probe/1")

	t0 := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{ErrMsg: err.Error()}
	}
	defer resp.Body.Close()
	ms := int(time.Since(t0).Milliseconds())

	minOK, maxOK := svc.MinOK, svc.MaxOK
	if minOK == 0 && maxOK == 0 {
		minOK, maxOK = 200, 399
	}
	ok := resp.StatusCode >= minOK && resp.StatusCode <= maxOK
	res := Result{OK: ok, Code: resp.StatusCode, MS: &ms}
	if !ok {
		res.ErrMsg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return res
}

// FindServiceByKey finds a service in the slice by its key
func FindServiceByKey(services []models.Service, key string) *models.Service {
	for i := range services {
		if services[i].Key == key {
			return &services[i]
		}
	}
	return nil
}
