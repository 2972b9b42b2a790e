// Package shared groups helpers used by several packages. Test helpers live
// in the testutil subpackage.
package shared
