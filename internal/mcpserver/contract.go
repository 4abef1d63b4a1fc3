package mcpserver

// EntityFormatContract describes the canonical YAML entity format that
// LLM consumers should follow when creating or updating entities.
const EntityFormatContract = `# Orion Entity Format Contract

Every entity stored in Orion is a YAML document validated against its
category schema. Addresses use the para:// scheme.

## Addressing

` + "```" + `
para://projects/<slug>/_meta        -> Orion/Projects/<slug>/_meta.yaml
para://areas/<slug>/_meta           -> Orion/Areas/<slug>/_meta.yaml
para://contacts/<name>              -> Orion/Resources/contacts/<name>.yaml
para://notes/<name>                 -> Orion/Resources/notes/<name>.yaml
para://templates/<name>             -> Orion/Resources/templates/<name>.yaml
` + "```" + `

The .yaml extension is appended automatically; never include it in the
address. Category names match case-insensitively.

## Schemas

All entities require an ` + "`" + `id` + "`" + ` (letters, digits, ` + "`" + `._-` + "`" + `, starting with a
letter or digit) that is unique within the category index.

### Project (projects/<slug>/_meta)

` + "```" + `yaml
id: proj_website            # REQUIRED
title: Website redesign     # REQUIRED
status: active              # REQUIRED - active | completed | cancelled | on_hold
description: Optional text
tags: [web, q3]
created_at: 2025-05-01T09:00:00Z
updated_at: 2025-06-15T12:00:00Z
` + "```" + `

Only ` + "`" + `completed` + "`" + ` projects can be archived.

### Area (areas/<slug>/_meta)

` + "```" + `yaml
id: area_health
title: Health
status: active              # REQUIRED - active | dormant
` + "```" + `

Only ` + "`" + `dormant` + "`" + ` areas can be archived.

### Contact (contacts/<name>)

` + "```" + `yaml
id: contact_jane
name: Jane Smith            # REQUIRED
email: jane@example.com
phone: "+1 555 0100"
company: Acme
` + "```" + `

### Note (notes/<name>)

` + "```" + `yaml
id: note_standup
title: Weekly standup       # REQUIRED
body: |
  Free-form text.
tags: [meeting]
` + "```" + `

### Resource (templates/, procedures/, preferences/)

` + "```" + `yaml
id: tmpl_weekly
title: Weekly review template   # REQUIRED
kind: template
fields:
  any: structured data
` + "```" + `

## Rules

1. **YAML only.** No Markdown frontmatter fences; the whole file is one
   YAML mapping.
2. **Timestamps** are RFC 3339 in UTC (e.g. ` + "`" + `2025-06-15T12:00:00Z` + "`" + `).
   ` + "`" + `updated_at` + "`" + ` determines the YYYY-MM archive bucket.
3. **Writes are normalizing.** Unknown fields are dropped on write; keep
   data in the schema fields above.
4. **Overwrites keep a backup.** The previous version survives as
   ` + "`" + `<file>.yaml.bak` + "`" + ` next to the entity.
5. **Category indexes are derived.** Never write ` + "`" + `_index.yaml` + "`" + ` or
   ` + "`" + `_queue.yaml` + "`" + ` directly; they are maintained by the store.
6. **Encoding** is UTF-8. File and directory names pass through verbatim,
   including spaces and non-Latin characters.
`
