package http

import (
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

type topItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type reportSummary struct {
	Since           string         `json:"since"`
	TotalOrders     int            `json:"totalOrders"`
	CompletedOrders int            `json:"completedOrders"`
	CancelledOrders int            `json:"cancelledOrders"`
	TotalRevenue    float64        `json:"totalRevenue"`
	AvgOrderValue   float64        `json:"avgOrderValue"`
	StatusCounts    map[string]int `json:"statusCounts"`
	TopItems        []topItem      `json:"topItems"`
}

// reportWindowStart resolves the since query parameter. Absent means the
// start of the current UTC day.
func reportWindowStart(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	since, err := reportWindowStart(r.URL.Query().Get("since"), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_since")
		return
	}

	orders, err := s.store.ListOrdersSince(r.Context(), since)
	if err != nil {
		s.log.Error("report query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	summary := reportSummary{
		Since:        since.Format(time.RFC3339),
		StatusCounts: map[string]int{},
		TopItems:     []topItem{},
	}
	itemTotals := map[string]*topItem{}

	for _, order := range orders {
		summary.TotalOrders++
		summary.StatusCounts[order.Status]++
		switch order.Status {
		case model.OrderStatusCancelled:
			summary.CancelledOrders++
			continue
		case model.OrderStatusCompleted:
			summary.CompletedOrders++
		}
		// Cancelled orders are refunded out of band and excluded from
		// revenue and the average.
		summary.TotalRevenue += amountFromCents(order.TotalAmount)

		for _, item := range order.Items {
			entry, ok := itemTotals[item.Name]
			if !ok {
				entry = &topItem{Name: item.Name}
				itemTotals[item.Name] = entry
			}
			entry.Quantity += item.Quantity
			entry.Revenue += amountFromCents(item.Price * int64(item.Quantity))
		}
	}

	if billed := summary.TotalOrders - summary.CancelledOrders; billed > 0 {
		summary.AvgOrderValue = summary.TotalRevenue / float64(billed)
	}

	for _, entry := range itemTotals {
		summary.TopItems = append(summary.TopItems, *entry)
	}
	sort.Slice(summary.TopItems, func(i, j int) bool {
		if summary.TopItems[i].Revenue != summary.TopItems[j].Revenue {
			return summary.TopItems[i].Revenue > summary.TopItems[j].Revenue
		}
		return summary.TopItems[i].Name < summary.TopItems[j].Name
	})
	if len(summary.TopItems) > 5 {
		summary.TopItems = summary.TopItems[:5]
	}

	writeJSON(w, http.StatusOK, summary)
}
