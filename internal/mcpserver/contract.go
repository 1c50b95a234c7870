package mcpserver

// DatasetFormatContract describes the YAML format of wallet dataset files
// that LLM consumers should follow when writing datasets.
const DatasetFormatContract = `# walletgraph Dataset Format

A dataset is one YAML file in the dataset directory (extension .yaml or .yml).

## Structure

` + "```" + `yaml
name: binance-trace                   # OPTIONAL – display name
nodes:                                # REQUIRED – at least one wallet
  - id: "Binance-Hot 2"               # REQUIRED – unique, doubles as the address
    label: "Binance-Hot 2\n$37,423"   # address, newline, balance
    position: {x: 100, y: -150}       # canvas coordinates
edges:
  - id: e5                            # REQUIRED – unique
    source: "Binance-Hot 2"           # REQUIRED – sending wallet id
    target: TEneWEhq6j4V8Ruvpbfhtrg1ZynWsAwa78
    label: "$10282.20"
overrides:                            # OPTIONAL – border/header color by exact id
  "Binance-Hot 2": "#f0b90b"
` + "```" + `

## Rules

1. **Node ids are unique** and are matched exactly (case and spaces count).
2. **Labels** are ` + "`" + `address\nbalance` + "`" + `. A third line and beyond are shown as notes.
3. **Edges are directed**: funds moved from ` + "`" + `source` + "`" + ` to ` + "`" + `target` + "`" + `.
   Parallel edges are allowed. Endpoints that name no wallet are kept but never drawn.
4. **Edge ids are unique.** Runtime transfers use ids prefixed with ` + "`" + `e-` + "`" + `.
5. **Overrides** replace the default green (` + "`" + `#4caf50` + "`" + `) of one wallet.
6. **Encoding** is UTF-8.

Edits to the active dataset file are picked up while the server runs.
Transfers created at runtime are not written back.
`
