package journal

// schema.sql is a generated reference of what the migrations build. Rerun
// go generate after adding a migration so the committed copy stays current.

//go:generate sh -c "cd ../.. && go run internal/journal/tools/generate_schema.go"
