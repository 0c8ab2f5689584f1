package converter

// jobScript runs inside the converter page with (svg, id). The conversion is
// scheduled with setTimeout so many jobs can be in flight at once; the return
// value only acknowledges receipt. The result, or the exception, is emitted
// through window.callHost tagged with id.
const jobScript = `function (svg, id) {
  setTimeout(function () {
    var result;
    try {
      result = generateCode(svg) || {};
      result.id = id;
    } catch (exc) {
      result = {
        id: id,
        exc: {
          name: (exc && exc.name) || "Error",
          message: String((exc && exc.message) || exc)
        }
      };
    }
    window.callHost(result);
  }, 1);
  return id;
}`
