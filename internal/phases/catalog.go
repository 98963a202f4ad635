// -----------------------------------------------------------------------
// Phase Catalog - declarative trigger table for pipeline stage inference
// -----------------------------------------------------------------------

package phases

// CatalogEntry maps a log message trigger substring to a pipeline phase.
// The matching rules are data, not scattered conditionals, so the catalog
// is independently testable.
type CatalogEntry struct {
	Trigger string // substring that opens the phase
	Key     string
	Label   string
}

// Catalog is the fixed, ordered set of known pipeline phases. Entries are
// tested in order against each log message; order is the tie-break when a
// message could match more than one trigger (first match wins).
//
// Triggers mirror the scraper engine's phase-start log lines.
var Catalog = []CatalogEntry{
	{Trigger: "Starting discovery phase", Key: "discovery", Label: "Discovery"},
	{Trigger: "Starting data enrichment", Key: "data_enrichment", Label: "Data Enrichment"},
	{Trigger: "Starting contact enrichment", Key: "contact_enrichment", Label: "Contact Enrichment"},
	{Trigger: "Starting email pattern matching", Key: "email_patterns", Label: "Email Patterns"},
}

// closeMarkers are the phrasings that terminate the open phase without
// opening a new one. Both capitalizations occur in practice ("Discovery
// complete", "Enrichment complete", "Complete" headers from older engine
// builds) and all must be honored. "Email patterns: generated" is the
// email phase's terminator; that stage never logs a "complete" line.
var closeMarkers = []string{
	"complete",
	"Complete",
	"Email patterns: generated",
}

// Message prefixes observed inside a phase span.
const (
	foundPrefix   = "Found: "
	sourcesPrefix = "Sources:"
)
