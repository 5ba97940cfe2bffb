// Package i18n provides tools over JSON translation files.
//
// Two layouts are recognised in a locales directory:
//
//	locales/en.json            flat: keys are dotted paths into the file
//	locales/en/common.json     namespaced: the first key segment picks the file
//
// Files are rewritten with sorted keys and two-space indentation.
package i18n
