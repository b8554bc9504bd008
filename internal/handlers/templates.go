package handlers

import "html/template"

var (
	galleryTemplate = template.Must(template.New("gallery").Parse(embeddedGalleryTemplate))
	workTemplate    = template.Must(template.New("work").Parse(embeddedWorkTemplate))
)

type galleryPage struct {
	Photos []galleryPhoto
	Count  int
}

type galleryPhoto struct {
	Year         int
	DayOfYear    int
	Date         string
	ImageURL     string
	ThumbnailURL string
	PermalinkURL string
}

type workPage struct {
	Connected   bool
	PhotoCount  int
	CurrentYear int
	UTCOffset   string
	Flash       string
}

const embeddedGalleryTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>365 - one photo a day</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #111;
            color: #eee;
            padding: 24px;
        }
        header { display: flex; justify-content: space-between; align-items: baseline; margin-bottom: 24px; }
        header a { color: #888; text-decoration: none; font-size: 14px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fill, minmax(200px, 1fr));
            gap: 12px;
        }
        figure { background: #1b1b1b; border-radius: 6px; overflow: hidden; }
        figure img { width: 100%; aspect-ratio: 1; object-fit: cover; display: block; }
        figcaption { padding: 8px 10px; font-size: 13px; color: #aaa; }
        .empty { color: #777; text-align: center; padding: 80px 0; }
    </style>
</head>
<body>
    <header>
        <h1>365</h1>
        <span>{{.Count}} days &middot; <a href="/work">work</a></span>
    </header>
    {{if .Photos}}
    <div class="grid">
        {{range .Photos}}
        <figure>
            <a href="{{.PermalinkURL}}" target="_blank" rel="noopener">
                <img src="{{if .ThumbnailURL}}{{.ThumbnailURL}}{{else}}{{.ImageURL}}{{end}}" alt="Day {{.DayOfYear}} of {{.Year}}" loading="lazy">
            </a>
            <figcaption>Day {{.DayOfYear}} of {{.Year}} &middot; {{.Date}}</figcaption>
        </figure>
        {{end}}
    </div>
    {{else}}
    <p class="empty">No photo yet.</p>
    {{end}}
    <script>
        (function () {
            var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            var ws = new WebSocket(proto + location.host + '/ws');
            ws.onmessage = function (ev) {
                var msg = JSON.parse(ev.data);
                if (msg.type === 'photo.saved') { location.reload(); }
            };
        })();
    </script>
</body>
</html>`

const embeddedWorkTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>365 - work</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 560px; margin: 48px auto; color: #222; }
        a.button, button { display: inline-block; padding: 8px 14px; border-radius: 4px; background: #3b5998; color: #fff; text-decoration: none; border: 0; cursor: pointer; font-size: 14px; }
        button.danger { background: #b33; }
        pre { background: #f4f4f4; padding: 12px; white-space: pre-wrap; }
        p { margin: 12px 0; }
    </style>
</head>
<body>
    <h1>365</h1>
    <p>{{.PhotoCount}} photos saved. Days are counted in {{.UTCOffset}}.</p>
    {{if .Flash}}<pre>{{.Flash}}</pre>{{end}}
    {{if .Connected}}
    <p><a class="button" href="/work/check">Check now</a> <a href="/work/check/{{.CurrentYear}}">check {{.CurrentYear}}</a></p>
    <form method="post" action="/work/db/truncate" onsubmit="return confirm('Delete every saved photo?');">
        <button class="danger" type="submit">Delete all photos</button>
    </form>
    <form method="post" action="/work/disconnect">
        <button type="submit">Disconnect</button>
    </form>
    {{else}}
    <p><a class="button" href="/work/connect">Connect your account</a></p>
    {{end}}
    <p><a href="/">Gallery</a></p>
</body>
</html>`
