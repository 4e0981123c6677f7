package embedder

import "strings"

// DescriptionSnippetChars bounds how much of an item description enters its canonical text
const DescriptionSnippetChars = 500

// Canonical text builders. Titles and names are written twice so they
// outweigh descriptions. Blank inputs are skipped; an entity with no text
// yields "" and is not embedded.

// ItemText builds the canonical text of a listing
func ItemText(title, description string, tags []string, categoryName string) string {
	var sb strings.Builder

	if title = strings.TrimSpace(title); title != "" {
		sb.WriteString(title + ". ")
		sb.WriteString(title + ". ")
	}

	if categoryName = strings.TrimSpace(categoryName); categoryName != "" {
		sb.WriteString("Category: " + categoryName + ". ")
	}

	var cleanTags []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}
	if len(cleanTags) > 0 {
		sb.WriteString("Tags: " + strings.Join(cleanTags, ", ") + ". ")
		for _, tag := range cleanTags {
			sb.WriteString(tag + ". ")
		}
	}

	if description = strings.TrimSpace(description); description != "" {
		if runes := []rune(description); len(runes) > DescriptionSnippetChars {
			description = string(runes[:DescriptionSnippetChars]) + "..."
		}
		sb.WriteString(description)
	}

	return strings.TrimSpace(sb.String())
}

// ShopText builds the canonical text of a storefront
func ShopText(name, description, ownerName string) string {
	var sb strings.Builder

	if name = strings.TrimSpace(name); name != "" {
		sb.WriteString(name + ". ")
		sb.WriteString(name + ". ")
	}
	if description = strings.TrimSpace(description); description != "" {
		sb.WriteString(description + ". ")
	}
	if ownerName = strings.TrimSpace(ownerName); ownerName != "" {
		sb.WriteString("Owner: " + ownerName)
	}

	return strings.TrimSpace(sb.String())
}

// CategoryText builds the canonical text of a taxonomy node
func CategoryText(name, slug string) string {
	var sb strings.Builder

	if name = strings.TrimSpace(name); name != "" {
		sb.WriteString(name + ". ")
		sb.WriteString(name + ". ")
	}
	if slug = strings.TrimSpace(slug); slug != "" {
		sb.WriteString("Type: " + slug)
	}

	return strings.TrimSpace(sb.String())
}
