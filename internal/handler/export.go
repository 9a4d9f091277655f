// export.go implements GET /workshops/{code}/export.
// Returns one row per player with who they give to.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).

package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/secret-santa/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"workshop_code", "workshop_name", "dollar_limit",
	"giver", "giver_tags", "receiver", "receiver_wishlist",
}

// GetExport handles GET /workshops/{code}/export.
// Use ?format=csv to receive CSV; default (or ?format=json) is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		requestError(w, fmt.Sprintf("invalid format for parameter format: %v", err))
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		requestError(w, fmt.Sprintf("unsupported export format %q", *format))
		return
	}

	rows, err := s.workshops.Export(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		body := encodeCSV(rows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", code+".csv"))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// encodeCSV writes the header row followed by one record per row.
// Tags and wishlist names within a row are pipe-separated ("|") to keep each
// player on a single CSV line.
func encodeCSV(rows []domain.ExportRow) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(rowToCSVRecord(r))
	}
	cw.Flush()
	return buf.Bytes()
}

// rowToCSVRecord encodes a domain.ExportRow as a flat string slice.
func rowToCSVRecord(r domain.ExportRow) []string {
	wishlist := make([]string, len(r.ReceiverWishlist))
	for i, item := range r.ReceiverWishlist {
		wishlist[i] = item.Name
	}
	return []string{
		r.WorkshopCode,
		r.WorkshopName,
		strconv.FormatFloat(r.DollarLimit, 'f', -1, 64),
		r.Giver,
		strings.Join(r.GiverTags, "|"),
		r.Receiver,
		strings.Join(wishlist, "|"),
	}
}
