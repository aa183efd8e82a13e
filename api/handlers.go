package api

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"timbercalc/adapters/export"
	"timbercalc/adapters/pricelist"
	"timbercalc/core/pricing"
	"timbercalc/internal/auth"
	"timbercalc/internal/errors"
)

// maxImportBytes bounds an uploaded price list
const maxImportBytes = 1 << 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     s.version,
		"service":     "timbercalc",
		"api_version": "v1",
	})
}

func (s *Server) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	if err := auth.CheckPasscode(s.app.Config.Server.Passcode, req.Passcode); err != nil {
		s.log.Warn("token request rejected")
		writeError(c, err)
		return
	}
	token, expires, err := auth.IssueToken(s.secret, "api", s.ttl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires})
}

func (s *Server) handleResolve(c *gin.Context) {
	var req MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	entry, res, err := s.app.Bills.Quote(c.Request.Context(), string(req.Girth), string(req.Length))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{Entry: entry, Resolution: res, Key: keyText(res)})
}

func (s *Server) tableResponse(c *gin.Context, table *pricing.Table) (PriceTableResponse, error) {
	ranges, lengths, err := s.app.Pricing.Inputs(c.Request.Context())
	if err != nil {
		return PriceTableResponse{}, err
	}
	return PriceTableResponse{
		ID:         string(table.ID),
		Hash:       table.ContentHash.Hex(),
		Source:     table.Source.String(),
		Configured: table.IsConfigured(),
		Ranges:     ranges,
		Lengths:    lengths,
		Data:       table.Data(),
	}, nil
}

func (s *Server) handleGetTable(c *gin.Context) {
	table, err := s.app.Pricing.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.tableResponse(c, table)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDefineTable(c *gin.Context) {
	var req DefineTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	table, cleared, err := s.app.Pricing.Define(c.Request.Context(), req.Ranges, req.Lengths)
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.tableResponse(c, table)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, DefineTableResponse{PriceTableResponse: resp, PricesCleared: cleared})
}

func (s *Server) handleSetPrice(c *gin.Context) {
	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	table, err := s.app.Pricing.SetPriceFor(c.Request.Context(), req.Range, req.Length, string(req.Price))
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.tableResponse(c, table)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleImportTable(c *gin.Context) {
	format, err := pricelist.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		writeError(c, errors.Parsing("read request body", err))
		return
	}
	if len(body) > maxImportBytes {
		writeError(c, errors.Validation("price list file is too large"))
		return
	}

	table, err := s.app.ImportPriceList(c.Request.Context(), bytes.NewReader(body), format)
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.tableResponse(c, table)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExportTable(c *gin.Context) {
	format, err := pricelist.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := s.app.ExportPriceList(c.Request.Context(), &buf, format); err != nil {
		writeError(c, err)
		return
	}
	name := pricelist.FileName(time.Now(), format)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType(string(format)), buf.Bytes())
}

func (s *Server) handleGetBill(c *gin.Context) {
	current, err := s.app.Bills.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, BillResponse{Entries: current.Entries(), Totals: current.Totals()})
}

func (s *Server) handleAddEntry(c *gin.Context) {
	var req MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	entry, res, err := s.app.Bills.AddEntry(c.Request.Context(), string(req.Girth), string(req.Length))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ResolveResponse{Entry: entry, Resolution: res, Key: keyText(res)})
}

func (s *Server) handleEditEntry(c *gin.Context) {
	index, ok := slnoIndex(c)
	if !ok {
		return
	}
	var req EditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	entry, err := s.app.Bills.EditEntry(c.Request.Context(), index, string(req.Girth), string(req.Length), string(req.Price))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(c *gin.Context) {
	index, ok := slnoIndex(c)
	if !ok {
		return
	}
	if err := s.app.Bills.DeleteEntry(c.Request.Context(), index); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearBill(c *gin.Context) {
	if err := s.app.Bills.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportBill(c *gin.Context) {
	var req ExportBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Parsing("invalid request body", err))
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(c, err)
		return
	}
	path, err := s.app.ExportBill(c.Request.Context(), req.Client, format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", contentType(string(format)))
	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) handleSearchBills(c *gin.Context) {
	bills, err := export.Search(s.app.Exporter.Dir(), export.Query{
		Client: c.Query("client"),
		Date:   c.Query("date"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if bills == nil {
		bills = []export.SavedBill{}
	}
	c.JSON(http.StatusOK, BillsResponse{Bills: bills, Count: len(bills)})
}

// slnoIndex converts the 1-based :slno parameter to an index
func slnoIndex(c *gin.Context) (int, bool) {
	slno, err := strconv.Atoi(c.Param("slno"))
	if err != nil {
		writeError(c, errors.Validationf("Invalid row selected: %s", c.Param("slno")))
		return 0, false
	}
	return slno - 1, true
}

func keyText(res pricing.Resolution) string {
	if !res.RangeFound {
		return ""
	}
	return res.Key.String()
}

func contentType(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "yaml":
		return "application/yaml"
	case "hcl":
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}
