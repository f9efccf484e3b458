// Package textutil cleans user-facing titles into names that are safe on
// every filesystem storyforge writes to.
package textutil
