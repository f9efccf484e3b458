// Package assets locates prerecorded music, ambience and sound effect clips
// and loads the voice catalog that maps casting voice ids to engine
// references.
package assets
