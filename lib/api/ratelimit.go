package api

import (
	"github.com/gorilla/mux"
	"github.com/ulule/limiter"
	"github.com/ulule/limiter/drivers/middleware/stdlib"
	"github.com/ulule/limiter/drivers/store/memory"
)

// NewRateLimitMiddleware limits requests per client ip. rate is formatted
// like "<limit>-<period>", eg. "100-M" for 100 requests a minute.
func NewRateLimitMiddleware(rate string) (mux.MiddlewareFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	m := stdlib.NewMiddleware(limiter.New(memory.NewStore(), r))
	return m.Handler, nil
}
