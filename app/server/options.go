package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/leynos/hoover/app/logcache"
)

// ErrBadOptions is returned for unknown or malformed materialization options
var ErrBadOptions = errors.New("bad materialization options")

// ParseOptions reads materialization options from query values.
// Only "index" and "timestamp" are accepted, a bare key means true.
func ParseOptions(q url.Values) (logcache.Options, error) {
	var opts logcache.Options
	for key, vals := range q {
		var dst *bool
		switch key {
		case "index":
			dst = &opts.Index
		case "timestamp":
			dst = &opts.Timestamp
		default:
			return logcache.Options{}, fmt.Errorf("%w: unknown option %q", ErrBadOptions, key)
		}
		if len(vals) > 1 {
			return logcache.Options{}, fmt.Errorf("%w: option %q repeated", ErrBadOptions, key)
		}
		if len(vals) == 0 || vals[0] == "" {
			*dst = true
			continue
		}
		v, err := strconv.ParseBool(vals[0])
		if err != nil {
			return logcache.Options{}, fmt.Errorf("%w: option %q is not a bool: %q", ErrBadOptions, key, vals[0])
		}
		*dst = v
	}
	return opts, nil
}

// Query encodes options back to query values, only set options are included
func Query(opts logcache.Options) url.Values {
	q := url.Values{}
	if opts.Index {
		q.Set("index", "true")
	}
	if opts.Timestamp {
		q.Set("timestamp", "true")
	}
	return q
}
