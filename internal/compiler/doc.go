// Package compiler turns model description text into a resolved ir.Model.
//
// It contains three stages:
//
//  1. CompileExpression translates an infix rule expression into postfix
//     using operator precedence parsing (! > * > +, parentheses as barriers).
//  2. ParseModel recognizes the line-oriented model grammar over a buffered
//     line cursor: an element section terminated by a "Rules:" line, then
//     rule entries in one of six forms (bare assignment, sync group, async
//     group, ranked rule, ranked sync group, ranked async group).
//  3. A resolution pass replaces element names with arena indices so the
//     simulator never hashes names on the per-cycle path.
//
// Every failure is returned as a *LoadError carrying a code and the 1-based
// line number. Loading is fail-fast: the first error aborts the load and no
// partial model is returned.
//
// Validate and AnalyzeFeedbackLoops perform optional static analysis of a
// loaded model. Their findings are warnings, never load errors.
package compiler
