// Package ytdlp wraps the yt-dlp downloader with the hardening flags needed
// to fetch media from services that block datacenter traffic.
package ytdlp
