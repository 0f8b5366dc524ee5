package mcpserver

// TemplateSyntax describes the template language LLM consumers should use
// when writing templates or calling render_text.
const TemplateSyntax = `# Temple Template Syntax

Templates are Markdown notes under the template directory (` + "`" + `_templates/` + "`" + ` by
default). They are rendered with Go ` + "`" + `text/template` + "`" + `, the Sprig function library and
four date filters.

## Context

| Key           | Contents                                                      |
|---------------|---------------------------------------------------------------|
| ` + "`" + `.file` + "`" + `       | ` + "`" + `Path` + "`" + `, ` + "`" + `Basename` + "`" + `, ` + "`" + `Extension` + "`" + `, ` + "`" + `UpdatedAt` + "`" + ` of the target document |
| ` + "`" + `.structured` + "`" + ` | named groups captured from the target's base name             |
| ` + "`" + `.note` + "`" + `       | ` + "`" + `Title` + "`" + `, ` + "`" + `Tags` + "`" + `, ` + "`" + `Aliases` + "`" + `, ` + "`" + `Links` + "`" + `, ` + "`" + `Frontmatter` + "`" + ` of the target        |

Missing keys render as empty text. Rendering literal text without a target
leaves ` + "`" + `.file` + "`" + ` and ` + "`" + `.note` + "`" + ` empty.

## Date filters

The piped value is always the last argument.

- ` + "`" + `now` + "`" + ` returns the current instant in the configured timezone and locale.
- ` + "`" + `today` + "`" + ` returns the start of the current day.
- ` + "`" + `parseDate "FORMAT"` + "`" + ` strictly parses a string. Formats use LDML tokens
  (` + "`" + `yyyy-MM-dd` + "`" + `) or strftime directives (` + "`" + `%Y-%m-%d` + "`" + `).
- ` + "`" + `formatDate ["FORMAT"]` + "`" + ` formats a datetime, epoch milliseconds or a
  ` + "`" + `time.Time` + "`" + `. Without a format the configured default is used.

## Examples

` + "```" + `
Hello {{ .file.Basename }}, today is {{ now | formatDate "yyyy-MM-dd" }}
Due {{ "2024-03-05" | parseDate "yyyy-MM-dd" | formatDate "EEEE d MMMM" }}
Ticket {{ .structured.uid }}: {{ .structured.title | upper }}
` + "```" + `

## Errors

A render fails as a whole. Error kinds: ` + "`" + `template_syntax` + "`" + `,
` + "`" + `missing_argument` + "`" + `, ` + "`" + `invalid_input_type` + "`" + `, ` + "`" + `datetime_parsing` + "`" + `.
Nothing is written when a render fails.
`
