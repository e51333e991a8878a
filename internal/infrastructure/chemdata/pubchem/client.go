// Package pubchem resolves compound names against the PubChem PUG REST and
// PUG View APIs: CID lookup, GHS safety data, display names with structure
// notation, and experimental melting/boiling points.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// safetyHeadings are tried in order when fetching GHS data; the empty string
// requests the whole record.  Narrow headings keep responses small, but not
// every compound record carries them.
var safetyHeadings = []string{"GHS Classification", "Safety and Hazards", ""}

// Client talks to PubChem.  It implements compound.SafetyDataResolver,
// compound.NameResolver, and compound.ThermalResolver.
type Client struct {
	cfg     config.PubChemConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

var (
	_ compound.SafetyDataResolver = (*Client)(nil)
	_ compound.NameResolver       = (*Client)(nil)
	_ compound.ThermalResolver    = (*Client)(nil)
)

// NewClient creates a PubChem client.  The metrics collector may be nil.
func NewClient(cfg config.PubChemConfig, logger logging.Logger, metrics *prometheus.AppMetrics) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultPubChemRequestsPerSecond
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

func (c *Client) instrument(operation string, start time.Time, err error) {
	if c.metrics != nil {
		prometheus.RecordResolverRequest(c.metrics, "pubchem", operation, err == nil, time.Since(start))
	}
}

// Resolve looks up the CID for a name and fetches its GHS safety profile.
// A compound that exists but carries no GHS section resolves to a profile
// with empty pictograms and statements.
func (c *Client) Resolve(ctx context.Context, name string) (profile *compound.SafetyProfile, err error) {
	start := time.Now()
	defer func() { c.instrument("safety_data", start, err) }()

	cid, err := c.cidForName(ctx, name)
	if err != nil {
		return nil, err
	}

	pictograms, statements, err := c.fetchGHS(ctx, cid)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("resolved safety profile",
		logging.String("name", name),
		logging.Int("cid", cid),
		logging.Int("pictograms", len(pictograms)),
		logging.Int("statements", len(statements)))

	return &compound.SafetyProfile{
		CID:              strconv.Itoa(cid),
		Pictograms:       pictograms,
		HazardStatements: dedupeStatements(statements),
	}, nil
}

// LookupNames fetches the display name, IUPAC name, and canonical SMILES for
// a CID.  Fields the record lacks carry the Unknown placeholder.
func (c *Client) LookupNames(ctx context.Context, cid string) (names *compound.CompoundNames, err error) {
	start := time.Now()
	defer func() { c.instrument("name_lookup", start, err) }()

	endpoint := fmt.Sprintf("%s/pug/compound/cid/%s/property/Title,IUPACName,CanonicalSMILES/JSON",
		c.baseURL(), url.PathEscape(cid))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.New(errors.ErrCodeResolverCompoundNotFound,
			fmt.Sprintf("no compound record for CID %s", cid))
	}

	var parsed struct {
		PropertyTable struct {
			Properties []struct {
				CID             int    `json:"CID"`
				Title           string `json:"Title"`
				IUPACName       string `json:"IUPACName"`
				CanonicalSMILES string `json:"CanonicalSMILES"`
			} `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResolverParseFailed, "malformed property response")
	}
	if len(parsed.PropertyTable.Properties) == 0 {
		return nil, errors.New(errors.ErrCodeResolverCompoundNotFound,
			fmt.Sprintf("empty property table for CID %s", cid))
	}

	p := parsed.PropertyTable.Properties[0]
	return &compound.CompoundNames{
		CanonicalName: orUnknown(p.Title),
		IUPACName:     orUnknown(p.IUPACName),
		SMILES:        orUnknown(p.CanonicalSMILES),
	}, nil
}

// LookupThermalProperties fetches melting and boiling points by name.  A
// missing or unparseable property leaves the corresponding field nil.
func (c *Client) LookupThermalProperties(ctx context.Context, name string) (props *compound.ThermalProperties, err error) {
	start := time.Now()
	defer func() { c.instrument("thermal_lookup", start, err) }()

	cid, err := c.cidForName(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &compound.ThermalProperties{}
	if v, ok := c.experimentalTemperature(ctx, cid, "Melting Point"); ok {
		result.MeltingC = &v
	}
	if v, ok := c.experimentalTemperature(ctx, cid, "Boiling Point"); ok {
		result.BoilingC = &v
	}
	return result, nil
}

// cidForName resolves a display name to its first CID.
func (c *Client) cidForName(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New(errors.ErrCodeCompoundInvalidName, "compound name must not be empty")
	}

	endpoint := fmt.Sprintf("%s/pug/compound/name/%s/cids/JSON", c.baseURL(), url.PathEscape(name))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, errors.New(errors.ErrCodeResolverCompoundNotFound,
			fmt.Sprintf("no PubChem match for %q", name))
	}

	var parsed struct {
		IdentifierList struct {
			CID []int `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeResolverParseFailed, "malformed CID response")
	}
	if len(parsed.IdentifierList.CID) == 0 {
		return 0, errors.New(errors.ErrCodeResolverCompoundNotFound,
			fmt.Sprintf("no PubChem match for %q", name))
	}
	return parsed.IdentifierList.CID[0], nil
}

// fetchGHS walks the safety headings until one yields pictograms or
// statements.  All headings missing means the compound has no GHS data.
func (c *Client) fetchGHS(ctx context.Context, cid int) ([]ctypes.Pictogram, []string, error) {
	for _, heading := range safetyHeadings {
		endpoint := fmt.Sprintf("%s/pug_view/data/compound/%d/JSON", c.baseURL(), cid)
		if heading != "" {
			endpoint += "?heading=" + url.QueryEscape(heading)
		}

		body, status, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, nil, err
		}
		if status == http.StatusNotFound {
			continue
		}

		var parsed viewResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			c.logger.Warn("malformed PUG View response",
				logging.Int("cid", cid),
				logging.String("heading", heading),
				logging.Err(err))
			continue
		}

		pictograms, statements := extractGHS(parsed.Record)
		if len(pictograms) > 0 || len(statements) > 0 {
			return pictograms, statements, nil
		}
	}
	return nil, nil, nil
}

// experimentalTemperature fetches one temperature heading for a CID.
func (c *Client) experimentalTemperature(ctx context.Context, cid int, heading string) (float64, bool) {
	endpoint := fmt.Sprintf("%s/pug_view/data/compound/%d/JSON?heading=%s",
		c.baseURL(), cid, url.QueryEscape(heading))

	body, status, err := c.get(ctx, endpoint)
	if err != nil || status == http.StatusNotFound {
		return 0, false
	}

	var parsed viewResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("malformed PUG View response",
			logging.Int("cid", cid),
			logging.String("heading", heading),
			logging.Err(err))
		return 0, false
	}
	return extractTemperatureC(parsed.Record)
}

// get performs one rate-limited GET with retries on transient failures.
// 404 is returned to the caller rather than treated as an error, since the
// APIs use it both for unknown compounds and for absent headings.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeResolverRateLimited, "rate limit wait aborted")
	}

	var lastErr error
	backoff := c.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, errors.Wrap(ctx.Err(), errors.ErrCodeResolverUpstreamFailed, "retry aborted")
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeResolverUpstreamFailed, "build request")
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound:
			return body, resp.StatusCode, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("pubchem returned status %d", resp.StatusCode)
			continue
		default:
			return nil, resp.StatusCode, errors.New(errors.ErrCodeResolverUpstreamFailed,
				fmt.Sprintf("pubchem returned status %d", resp.StatusCode))
		}
	}

	return nil, 0, errors.Wrap(lastErr, errors.ErrCodeResolverUpstreamFailed, "pubchem request failed after retries")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return compound.UnknownValue
	}
	return s
}

//Personal.AI order the ending
