package internal


type DocKind string

const (
	KindSpreadsheet DocKind = "spreadsheet"
	KindPDF         DocKind = "pdf"
	KindImage       DocKind = "image"
	KindCSV         DocKind = "csv"
	KindHTML        DocKind = "html"
	KindText        DocKind = "text"
	KindEmail       DocKind = "email"
	KindUnknown     DocKind = "unknown"
)

// Document is one uploaded price list as handed to the extraction cascade.
type Document struct {
	Filename string
	Mime     string
	Bytes    []byte
}

type ExtractionMethod string

const (
	MethodSpreadsheet    ExtractionMethod = "spreadsheet"
	MethodSpreadsheetAlt ExtractionMethod = "spreadsheet_alt"
	MethodCSV            ExtractionMethod = "csv"
	MethodHTMLTable      ExtractionMethod = "html_table"
	MethodPDFText        ExtractionMethod = "pdf_text"
	MethodPDFTable       ExtractionMethod = "pdf_table"
	MethodVisionOCR      ExtractionMethod = "vision_ocr"
	MethodLLMDocument    ExtractionMethod = "llm_document"
	MethodTextLines      ExtractionMethod = "text_lines"
	MethodEmail          ExtractionMethod = "email"
)

// RawRow is one extracted price-list line before normalization. Price is the
// numeric value as parsed from the document; a thousands marker ("k", "rb")
// travels in Unit and is resolved by the normalizer.
type RawRow struct {
	Line     int
	Name     string
	Unit     string
	Price    float64
	PriceRaw string
	Category string
	Context  string
}

type Category string

const (
	CategoryDairy       Category = "dairy"
	CategoryMeat        Category = "meat"
	CategorySeafood     Category = "seafood"
	CategoryVegetables  Category = "vegetables"
	CategoryFruits      Category = "fruits"
	CategorySpices      Category = "spices"
	CategoryGrains      Category = "grains"
	CategoryBakery      Category = "bakery"
	CategoryBeverages   Category = "beverages"
	CategoryOils        Category = "oils"
	CategorySweeteners  Category = "sweeteners"
	CategoryCondiments  Category = "condiments"
	CategoryDisposables Category = "disposables"
	CategoryOther       Category = "other"
)

var Categories = []Category{
	CategoryDairy, CategoryMeat, CategorySeafood, CategoryVegetables,
	CategoryFruits, CategorySpices, CategoryGrains, CategoryBakery,
	CategoryBeverages, CategoryOils, CategorySweeteners, CategoryCondiments,
	CategoryDisposables, CategoryOther,
}

// NormalizedRow is the canonical form of one RawRow. The normalizer returns
// exactly one NormalizedRow per input row, in input order.
type NormalizedRow struct {
	Raw        RawRow
	StdName    string
	StdUnit    string
	Quantity   *float64
	Category   Category
	UnitPrice  float64
	Confidence int
}

type UploadStatus string

const (
	UploadPending             UploadStatus = "pending"
	UploadProcessing          UploadStatus = "processing"
	UploadCompleted           UploadStatus = "completed"
	UploadCompletedWithErrors UploadStatus = "completed_with_errors"
	UploadFailed              UploadStatus = "failed"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type UploadRecord struct {
	ID              string
	Filename        string
	StoredPath      string
	Mime            string
	SizeBytes       int64
	Status          UploadStatus
	ApprovalStatus  ApprovalStatus
	Stage           string
	ProgressPct     int
	ProcessingMs    int64
	TokensUsed      int64
	CostUSD         float64
	Completeness    float64
	BestMethod      *string
	Errors          []string
	ErrorMessage    *string
	CancelRequested bool
	SupplierID      *int64
	SupplierHint    *string
	CreatedAt       string
	UpdatedAt       string
}

type SupplierRecord struct {
	ID      int64
	Name    string
	Email   *string
	Phone   *string
	Address *string
}

type ProductRecord struct {
	ID          int64
	RawName     string
	DisplayName string
	StdName     string
	Category    Category
	Unit        *string
	StdUnit     *string
}

type PriceRecord struct {
	ID         int64
	ProductID  int64
	SupplierID int64
	Amount     float64
	Unit       *string
	UnitPrice  *float64
	ValidFrom  string
	ValidTo    *string
	UploadID   *string
}

type PriceHistoryRecord struct {
	ID           int64
	ProductID    int64
	SupplierID   int64
	Price        float64
	Unit         *string
	ChangedFrom  *float64
	ChangePct    *float64
	ChangeReason string
	UploadID     *string
	CreatedAt    string
}

// PriceAction reports what UpsertPrice did for one (product, supplier) pair.
type PriceAction string

const (
	PriceCreated   PriceAction = "created"
	PriceUpdated   PriceAction = "updated"
	PriceDuplicate PriceAction = "duplicate"
)

type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueAssigned QueueStatus = "assigned"
	QueueIgnored  QueueStatus = "ignored"
)

type UnmatchedEntry struct {
	ID         int64
	UploadID   *string
	SupplierID int64
	RawName    string
	RawUnit    *string
	Context    *string
	Frequency  int
	Status     QueueStatus
	ProductID  *int64
	CreatedAt  string
	UpdatedAt  string
}

// FetchedMailMessage is one inbox message pulled by a connector.
// SupplierHint carries the sender's display name when the connector could
// read one; it seeds supplier attribution for the resulting upload.
type FetchedMailMessage struct {
	Provider     string
	MessageID    string
	Subject      string
	From         string
	SupplierHint string
	ReceivedAt   string
	Raw          []byte
}
