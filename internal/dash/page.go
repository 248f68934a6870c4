package dash

// indexPage is the self-contained dashboard page. It polls /api/series and
// redraws one chart per fixed category; the target value is drawn as a
// dashed horizontal reference line.
const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ironlog</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.3/dist/chart.umd.min.js"></script>
<style>
  body { font-family: system-ui, sans-serif; margin: 0; background: #111518; color: #e6e6e6; }
  header { display: flex; align-items: baseline; gap: 1rem; padding: 1rem 1.5rem; border-bottom: 1px solid #2a2f35; }
  header h1 { margin: 0; font-size: 1.2rem; letter-spacing: 0.08em; }
  #updated, #granularity { color: #8a929b; font-size: 0.85rem; }
  #waiting { padding: 3rem; text-align: center; color: #8a929b; display: none; }
  #charts { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 1rem; padding: 1rem; }
  .card { background: #181d22; border: 1px solid #2a2f35; border-radius: 8px; padding: 1rem; }
  .card h2 { margin: 0 0 0.5rem; font-size: 1rem; font-weight: 600; }
  .nodata { color: #8a929b; font-style: italic; padding: 2rem 0; text-align: center; }
</style>
</head>
<body>
<header>
  <h1>IRONLOG</h1>
  <span id="granularity"></span>
  <span id="updated"></span>
</header>
<div id="waiting">Waiting for data&hellip; log a first set and it will appear here.</div>
<div id="charts"></div>
<script>
const charts = {};

function ensureCard(category) {
  let card = document.getElementById('card-' + category);
  if (card) return card;
  card = document.createElement('div');
  card.className = 'card';
  card.id = 'card-' + category;
  card.innerHTML = '<h2>' + category + '</h2><div class="nodata">no data in window</div><canvas></canvas>';
  document.getElementById('charts').appendChild(card);
  return card;
}

function render(snap) {
  document.getElementById('waiting').style.display = snap.waiting ? 'block' : 'none';
  document.getElementById('charts').style.display = snap.waiting ? 'none' : 'grid';
  document.getElementById('updated').textContent =
    'updated ' + new Date(snap.lastUpdated).toLocaleTimeString();
  document.getElementById('granularity').textContent = snap.granularity || '';
  if (snap.waiting) return;

  for (const chart of snap.charts) {
    const card = ensureCard(chart.category);
    const notice = card.querySelector('.nodata');
    const canvas = card.querySelector('canvas');
    if (!chart.hasData) {
      notice.style.display = 'block';
      canvas.style.display = 'none';
      continue;
    }
    notice.style.display = 'none';
    canvas.style.display = 'block';

    const labels = chart.points.map(p => p.bucket);
    const values = chart.points.map(p => p.value);
    const target = chart.points.map(() => chart.target);

    if (charts[chart.category]) {
      const c = charts[chart.category];
      c.data.labels = labels;
      c.data.datasets[0].data = values;
      c.data.datasets[1].data = target;
      c.update('none');
      continue;
    }
    charts[chart.category] = new Chart(canvas, {
      type: 'line',
      data: {
        labels: labels,
        datasets: [
          { label: chart.category, data: values, borderColor: '#4fc3f7', tension: 0.2, pointRadius: 2 },
          { label: 'target', data: target, borderColor: '#ffb74d', borderDash: [6, 4], pointRadius: 0 }
        ]
      },
      options: {
        animation: false,
        scales: { y: { grid: { color: '#2a2f35' } }, x: { grid: { display: false } } },
        plugins: { legend: { labels: { color: '#e6e6e6' } } }
      }
    });
  }
}

async function poll() {
  try {
    const res = await fetch('/api/series');
    if (res.ok) render(await res.json());
  } catch (e) { /* keep last state, next poll retries */ }
}

poll();
setInterval(poll, 5000);
</script>
</body>
</html>
`
