// internal/core/domain/import.go
package domain

import "encoding/json"

// Catalog spreadsheet columns.
const (
	ColProductName        = "Nombre"
	ColCategory           = "Categoria"
	ColSubcategory        = "SubCAT"
	ColSalePrice          = "Precio Venta"
	ColSalePriceAlternate = "Precio_Venta"
)

// Sales spreadsheet columns.
const (
	ColSaleNumber = "ID_Venta"
	ColDate       = "Fecha"
	ColTime       = "Hora"
	ColClientID   = "ID_Cliente"
	ColProduct    = "Producto"
	ColQuantity   = "Cantidad"
	ColUnitPrice  = "Precio_Unitario"
	ColTotal      = "Total_Venta"
	ColSeller     = "Vendedor"
	ColTerminal   = "ID_Terminal"
)

// Row is one parsed spreadsheet row keyed by header name. Values are raw:
// string, float64, time.Time or nil.
type Row map[string]any

// Has reports whether the column exists in the row, even if its value is blank.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Pick returns the value of the first column present in the row.
func (r Row) Pick(columns ...string) any {
	for _, c := range columns {
		if v, ok := r[c]; ok {
			return v
		}
	}
	return nil
}

// ImportResult counts what an ingestion run changed. Skipped rows are
// reported for logging only.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Changed reports whether the run wrote anything.
func (r ImportResult) Changed() bool {
	return r.Created > 0 || r.Updated > 0
}

// ImportKind names the source format of an uploaded file.
type ImportKind string

const (
	ImportCatalog    ImportKind = "catalog"
	ImportCatalogPDF ImportKind = "catalog_pdf"
	ImportSales      ImportKind = "sales"
)

// Valid reports whether k is a known import kind.
func (k ImportKind) Valid() bool {
	switch k {
	case ImportCatalog, ImportCatalogPDF, ImportSales:
		return true
	}
	return false
}

// ImportJob is an uploaded file waiting to be ingested.
type ImportJob struct {
	JobID     string     `json:"job_id"`
	Kind      ImportKind `json:"kind"`
	ObjectKey string     `json:"object_key"`
	FileName  string     `json:"file_name"`
	Requested string     `json:"requested_by,omitempty"`
}

// JobStatus is the queue-side view of an import job.
type JobStatus struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Queue     string          `json:"queue"`
	State     string          `json:"state"`
	Retried   int             `json:"retried"`
	LastError string          `json:"last_error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}
