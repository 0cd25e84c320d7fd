package help

const QuickstartYAML = `# abstract-enricher Quick Start

input:
  - "CSV with a header row; a leading UTF-8 BOM is ignored"
  - "Must contain the identifier column (default: PMID)"

output:
  - "Same columns in the same order, plus the result column (default: abstract) last"
  - "An existing result column is moved last and overwritten"
  - "Rows are written as they are processed"

commands:
  basic: |
    abstract-enricher input.csv output.csv

  custom_columns: |
    abstract-enricher enrich --identifier-field pmid --result-field summary input.csv output.csv

  other_service: |
    abstract-enricher enrich --url-template "https://example.org/papers/{id}" --selector "section.abstract" input.csv output.csv

  with_ledger: |
    abstract-enricher enrich --ledger runs.db --detect-language input.csv output.csv
    abstract-enricher runs --ledger runs.db --limit 5

  config_file: |
    abstract-enricher enrich --config enrich.yaml input.csv output.csv

sentinels:
  download_failed: "Abstract download failed: could not download page"
  not_found: "Abstract download failed: abstract not found on page"

retry_policy:
  retries: "4 per request, counted separately for total, connect and read failures"
  backoff: "backoff_factor * 2^k seconds before retry k, capped at 120s"
  statuses: "413, 429, 500, 502, 503, 504 plus --retry-status"
  methods: "DELETE, GET, HEAD, OPTIONS, PUT, TRACE plus --retry-method"
  retry_after: "Honoured on 413, 429 and 503"

environment:
  - "Every enrich flag has an ENRICH_* variable, e.g. ENRICH_RETRIES=2"
  - "A .env file in the working directory is loaded at startup"

error_behavior:
  - "Per-row fetch failures become sentinel values; the run continues"
  - "Missing identifier column: exit 2, no output file is created"
  - "Malformed CSV record: exit 2, rows already written are kept"
  - "Bad flags or configuration: exit 1 before anything is fetched"
`
