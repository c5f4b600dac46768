package mcpserver

// AddressGrammar describes the Luhmann-style address scheme that LLM
// consumers should follow when placing notes in the outline.
const AddressGrammar = `# Kasten Address Grammar

Every note lives at one or more addresses. The address alone decides where
the note appears in the outline; there is no separate parent field.

## Structure

An address is a run of segments that alternate between numbers and
lowercase letters, always starting with a number:

` + "```" + `
1        top-level note
1a       first child of 1
1a1      first child of 1a
1a1b     ...
12c3     numbers and letter runs may be any length
` + "```" + `

## Rules

1. **Start with a number.** ` + "`" + `a1` + "`" + ` is invalid.
2. **Alternate.** A letter run is always followed by a number run and vice versa.
   Anything other than ASCII digits and letters is ignored when parsing, so
   ` + "`" + `1-2` + "`" + ` is two number runs in a row and therefore invalid.
3. **Case and zeros do not matter for identity.** ` + "`" + `01A` + "`" + ` and ` + "`" + `1a` + "`" + ` are the same
   address; the store keeps what you typed, lowercased.
4. **Unique.** No two notes may hold the same address. Use ` + "`" + `check_address` + "`" + ` first.
5. **Parents are optional.** ` + "`" + `3b2` + "`" + ` may exist without ` + "`" + `3b` + "`" + `; it is then shown as an
   orphan (marked with ?) under its deepest existing ancestor.
6. **Multiple addresses.** A note listed under several addresses appears once per
   address. Pass them comma-separated to ` + "`" + `create_note` + "`" + ` or ` + "`" + `update_note` + "`" + `.

## Ordering

Numbers compare by value (` + "`" + `2` + "`" + ` < ` + "`" + `10` + "`" + `), letters alphabetically
(` + "`" + `aa` + "`" + ` < ` + "`" + `b` + "`" + `). At any position a number sorts before a letter run, and a
parent sorts before its children:

` + "```" + `
1  1a  1a1  1a2  1b  2  10  10a
` + "```" + `

## Choosing an address

- To continue a thought, append the next sibling: after ` + "`" + `1a3` + "`" + ` comes ` + "`" + `1a4` + "`" + `.
- To branch off a note, append a new segment: under ` + "`" + `1a3` + "`" + ` start at ` + "`" + `1a3a` + "`" + `.
- To squeeze a note between ` + "`" + `1a` + "`" + ` and ` + "`" + `1b` + "`" + `, branch: ` + "`" + `1a1` + "`" + `.
`
