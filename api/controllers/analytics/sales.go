package analytics

import (
	"net/http"

	"github.com/loomline/storefront-backend/api/responses"
	"github.com/loomline/storefront-backend/internal/analytics"
	"github.com/loomline/storefront-backend/internal/analytics/types"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// SalesReport serves the back office dashboard from the order facts table.
func SalesReport(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		start, end, err := resolveReportRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := service.SalesReport(ctx, types.SalesReportRequest{
			Start: start,
			End:   end,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
