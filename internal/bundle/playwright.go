package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PlaywrightModule renders a TypeScript helper exposing the bundle's resolved
// selectors behind a typed getLocator(page, key) function. Keys without a
// primary selector are skipped.
func PlaywrightModule(b *Bundle) string {
	var keys []string
	var entries []string
	for _, key := range b.SemanticTargets {
		entry := b.Resolution[key]
		if entry.Primary == nil || entry.Primary.Selector == "" {
			continue
		}
		keys = append(keys, key)

		var fallbacks []string
		for _, fb := range entry.Fallbacks {
			if fb.Selector != "" {
				fallbacks = append(fallbacks, tsString(fb.Selector))
			}
		}
		entries = append(entries, fmt.Sprintf(
			"  '%s': {\n    selector: %s,\n    confidence: %s,\n    fallbacks: [%s]\n  }",
			key,
			tsString(entry.Primary.Selector),
			strconv.FormatFloat(entry.Confidence, 'g', -1, 64),
			strings.Join(fallbacks, ", "),
		))
	}

	keyUnion := "never"
	if len(keys) > 0 {
		quoted := make([]string, len(keys))
		for i, key := range keys {
			quoted[i] = "'" + key + "'"
		}
		keyUnion = strings.Join(quoted, " | ")
	}

	var sb strings.Builder
	sb.WriteString("// Auto-generated by semloc. Do not edit manually.\n")
	sb.WriteString("import type { Page } from '@playwright/test';\n\n")
	sb.WriteString("type SemanticKey = " + keyUnion + ";\n\n")
	sb.WriteString("type LocatorEntry = {\n")
	sb.WriteString("  selector: string;\n")
	sb.WriteString("  confidence: number;\n")
	sb.WriteString("  fallbacks: string[];\n")
	sb.WriteString("};\n\n")
	sb.WriteString("export const locatorBundle: Record<SemanticKey, LocatorEntry> = {\n")
	sb.WriteString(strings.Join(entries, ",\n"))
	sb.WriteString("\n} as const;\n\n")
	sb.WriteString("export function getLocator(page: Page, key: SemanticKey) {\n")
	sb.WriteString("  const entry = locatorBundle[key];\n")
	sb.WriteString("  if (!entry) {\n")
	sb.WriteString("    throw new Error('Unknown semantic key: ' + key);\n")
	sb.WriteString("  }\n")
	sb.WriteString("  return page.locator(entry.selector);\n")
	sb.WriteString("}\n")
	return sb.String()
}

// PlaywrightSpec renders a sample Playwright test walking every generated
// locator on the bundle's page.
func PlaywrightSpec(b *Bundle) string {
	var sb strings.Builder
	sb.WriteString("// Auto-generated sample Playwright test using the semloc bundle.\n")
	sb.WriteString("import { test, expect } from '@playwright/test';\n")
	sb.WriteString("import { getLocator, locatorBundle } from '../locators.generated';\n\n")
	sb.WriteString("test('generated selectors resolve', async ({ page }) => {\n")
	sb.WriteString("  await page.goto(" + tsString(b.URL) + ");\n")
	sb.WriteString("  for (const key of Object.keys(locatorBundle) as Array<keyof typeof locatorBundle>) {\n")
	sb.WriteString("    const locator = getLocator(page, key);\n")
	sb.WriteString("    await expect(locator).toBeVisible();\n")
	sb.WriteString("  }\n")
	sb.WriteString("});\n")
	return sb.String()
}

// WritePlaywrightAssets writes the helper module and the sample spec.
func WritePlaywrightAssets(b *Bundle, modulePath, specPath string) error {
	for path, content := range map[string]string{
		modulePath: PlaywrightModule(b),
		specPath:   PlaywrightSpec(b),
	} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create asset directory: %w", err)
			}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// tsString renders s as a double-quoted TS string literal with escaping.
func tsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
