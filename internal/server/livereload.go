package server

// liveReloadClient connects to the live-reload socket and reloads the page,
// or only its stylesheets, when told to. It reconnects after a server restart.
const liveReloadClient = `(function () {
  var retry = 1000;
  function refreshStyles() {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var href = links[i].href.replace(/[?&]lr=\d+/, '');
      links[i].href = href + (href.indexOf('?') < 0 ? '?' : '&') + 'lr=' + Date.now();
    }
  }
  function connect() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/livereload');
    ws.onopen = function () { retry = 1000; };
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === 'css') {
        refreshStyles();
      } else if (msg.type === 'reload') {
        location.reload();
      }
    };
    ws.onclose = function () {
      setTimeout(connect, retry);
      retry = Math.min(retry * 2, 10000);
    };
  }
  connect();
})();
`
