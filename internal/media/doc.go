// Package media persists video assets and their manifest URLs.
package media
